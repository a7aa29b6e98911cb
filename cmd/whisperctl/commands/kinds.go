package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
)

// kinds: list the event kinds the bus accepts.
func kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List event kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range events.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
