package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-notifier/internal/events"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish an event file to the notifier's NATS subject",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		url, _ := cmd.Flags().GetString("nats-url")
		subject, _ := cmd.Flags().GetString("subject")

		payload, err := readPayload(cmd, path)
		if err != nil {
			return err
		}

		pub, err := events.NewNATSPublisher(url)
		if err != nil {
			return err
		}
		defer pub.Close() //nolint:errcheck

		if err := pub.Publish(subject, payload); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d bytes to %s\n", len(payload), subject)
		return nil
	},
}

func defaultNATSURL() string {
	if s := os.Getenv("NATS_URL"); s != "" {
		return s
	}
	return "nats://127.0.0.1:4222"
}

func defaultSubject() string {
	if s := os.Getenv("NATS_SUBJECT"); s != "" {
		return s
	}
	return "ttk.events"
}

func init() {
	publishCmd.Flags().StringP("file", "f", "", "event JSON file (- for stdin)")
	publishCmd.Flags().String("nats-url", defaultNATSURL(), "NATS server URL")
	publishCmd.Flags().String("subject", defaultSubject(), "subject to publish on")
}
