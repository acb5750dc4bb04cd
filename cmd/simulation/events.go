package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"ai-lifeplan-be/pkg/events"
	pktNats "ai-lifeplan-be/pkg/nats"

	"github.com/spf13/cobra"
)

var (
	natsURL      string
	eventSubject string
	durableName  string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print interview events forwarded to NATS",
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&natsURL, "nats-url", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")
	eventsCmd.Flags().StringVar(&eventSubject, "subject", pktNats.AllSubjects, "subject filter")
	eventsCmd.Flags().StringVar(&durableName, "durable", "lifeplan-simulation", "durable consumer name")
}

func runEvents(cmd *cobra.Command, args []string) error {
	sub, err := pktNats.NewSubscriber(natsURL, cliLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if err := sub.Subscribe(ctx, eventSubject, durableName, func(ctx context.Context, event events.Event) error {
		return printEvent(out, event)
	}); err != nil {
		return err
	}
	dimColor.Fprintf(out, "listening on %s (ctrl-c to stop)\n", eventSubject)
	<-ctx.Done()
	return nil
}

func printEvent(out io.Writer, event events.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return err
	}
	phaseColor.Fprintf(out, "%s ", event.Timestamp().Format("15:04:05"))
	assistantColor.Fprintf(out, "%-26s ", event.EventType())
	fmt.Fprintln(out, string(payload))
	return nil
}
