package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
)

// emit <kind> <json>: publish one event to every connected API process.
func emitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "emit <kind> <json>",
		Short:   "Emit an event on the shared bus",
		Example: `  whisperctl emit navigateToMessage '{"lat":34.05,"lng":-118.24,"messageId":"m1"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := events.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown event kind %q (see whisperctl kinds)", args[0])
			}
			payload, err := events.Decode(kind, []byte(args[1]))
			if err != nil {
				return err
			}

			if err := dial(); err != nil {
				return err
			}
			defer bridge.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := bridge.Relay(ctx, string(kind), payload); err != nil {
				return err
			}
			if err := bridge.Flush(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "emitted", kind)
			return nil
		},
	}
}
