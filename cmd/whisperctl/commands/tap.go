package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
)

// tap: print every event emitted by other processes until interrupted.
func tapCmd() *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "tap",
		Short: "Print events as API processes emit them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[events.Kind]bool, len(only))
			for _, s := range only {
				kind, ok := events.ParseKind(s)
				if !ok {
					return fmt.Errorf("unknown event kind %q", s)
				}
				filter[kind] = true
			}

			if err := connect(); err != nil {
				return err
			}
			defer bridge.Close()

			out := json.NewEncoder(cmd.OutOrStdout())
			untap := bus.Tap(func(env events.Envelope) {
				if len(filter) > 0 && !filter[env.Kind] {
					return
				}
				_ = out.Encode(map[string]any{
					"at":      time.Now().Format(time.RFC3339Nano),
					"kind":    env.Kind,
					"origin":  env.Origin,
					"payload": env.Payload,
				})
			})
			defer untap()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "kind", nil, "only print these kinds (repeatable)")
	return cmd
}
