package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
)

func geoPointMap(p domain.GeoPoint) map[string]interface{} {
	return map[string]interface{}{"lat": p.Lat, "lng": p.Lng}
}

func resolutionMap(r location.Resolution) map[string]interface{} {
	return map[string]interface{}{
		"coordinate": geoPointMap(r.Coordinate),
		"source":     string(r.Source),
		"selectedId": r.SelectedID,
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	resolutionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Resolution",
		Fields: graphql.Fields{
			"coordinate": &graphql.Field{Type: geoPointType},
			"source":     &graphql.Field{Type: graphql.String},
			"selectedId": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"eventKinds": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Event kinds accepted by the bus",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kinds := events.Kinds()
					out := make([]string, len(kinds))
					for i, k := range kinds {
						out[i] = string(k)
					}
					return out, nil
				},
			},
			"defaultLocation": &graphql.Field{
				Type:        geoPointType,
				Description: "Coordinate used when nothing better is known",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return geoPointMap(deps.Locator.Fallback()), nil
				},
			},
			"resolveLocation": &graphql.Field{
				Type:        resolutionType,
				Description: "Resolve the opening coordinate from navigation state",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.Float},
					"lng":    &graphql.ArgumentConfig{Type: graphql.Float},
					"target": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					nav, err := navigationFromQuery(argsQuery(p.Args))
					if err != nil {
						return nil, err
					}
					return resolutionMap(deps.Locator.Resolve(nav)), nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"emit": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Emit an event; payload is a JSON document",
				Args: graphql.FieldConfigArgument{
					"kind":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"payload": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kind := events.Kind(p.Args["kind"].(string))
					payload := p.Args["payload"].(string)
					if err := deps.Bus.EmitJSON(kind, []byte(payload)); err != nil {
						return false, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

// argsQuery exposes GraphQL arguments through the same lookup the REST and
// WebSocket handlers use, so all three apply one set of coordinate rules.
func argsQuery(args map[string]interface{}) queryFunc {
	return func(key string, defaultValue ...string) string {
		switch v := args[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return ""
	}
}
