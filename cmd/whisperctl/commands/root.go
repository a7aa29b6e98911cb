// Package commands implements whisperctl, an operator CLI that talks to the
// event bus of running API processes through NATS.
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	natsadapter "github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/nats"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/logging"
)

var (
	natsURL  string
	subject  string
	logLevel string
	timeout  time.Duration

	bus    *events.Bus
	bridge *natsadapter.Bridge
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "whisperctl",
		Short:         "Emit and observe map events across API processes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&natsURL, "nats", "nats://localhost:4222", "NATS server URL")
	root.PersistentFlags().StringVar(&subject, "subject", "whispers.events", "subject prefix the API bridges use")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for NATS to connect and acknowledge")

	root.AddCommand(kindsCmd(), emitCmd(), tapCmd())
	return root
}

// dial opens a bridge without joining the bus. emit uses it to publish
// directly so a failed send is reported.
func dial() error {
	log := logging.Setup(logLevel, "text", "whisperctl")

	nc, err := natsadapter.Dial(natsURL, timeout)
	if err != nil {
		return err
	}
	bus = events.NewBus(log)
	bridge = natsadapter.NewBridge(nc, subject, bus, log)
	slog.Debug("connected", "nats", natsURL, "subject", subject)
	return nil
}

// connect joins the bus of the API processes. Commands that need it call it
// from RunE so "kinds" works offline.
func connect() error {
	if err := dial(); err != nil {
		return err
	}
	if err := bridge.Start(); err != nil {
		bridge.Close()
		return fmt.Errorf("start bridge: %w", err)
	}
	return nil
}
