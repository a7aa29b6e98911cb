package natsadapter

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// wireEnvelope is the broker form of a bus event. It travels as a protobuf
// google.protobuf.Struct so non-Go consumers can decode it without a schema.
type wireEnvelope struct {
	Source    string
	Kind      string
	EmittedAt time.Time
	Payload   json.RawMessage
}

func encodeEnvelope(env wireEnvelope) ([]byte, error) {
	var payload any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("payload to struct: %w", err)
		}
	}

	st, err := structpb.NewStruct(map[string]any{
		"source":     env.Source,
		"kind":       env.Kind,
		"emitted_at": env.EmittedAt.UTC().Format(time.RFC3339Nano),
		"payload":    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("build envelope: %w", err)
	}
	return proto.Marshal(st)
}

func decodeEnvelope(data []byte) (wireEnvelope, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return wireEnvelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	fields := st.GetFields()
	env := wireEnvelope{
		Source: fields["source"].GetStringValue(),
		Kind:   fields["kind"].GetStringValue(),
	}
	if env.Kind == "" {
		return wireEnvelope{}, fmt.Errorf("envelope without kind")
	}
	if ts := fields["emitted_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return wireEnvelope{}, fmt.Errorf("emitted_at: %w", err)
		}
		env.EmittedAt = t
	}

	payload, err := json.Marshal(fields["payload"].AsInterface())
	if err != nil {
		return wireEnvelope{}, fmt.Errorf("payload to json: %w", err)
	}
	env.Payload = payload
	return env, nil
}
