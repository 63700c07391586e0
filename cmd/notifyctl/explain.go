package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-notifier/internal/service"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show how an event would be classified, without sending anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		payload, err := readPayload(cmd, path)
		if err != nil {
			return err
		}

		exp, err := service.Explain(payload)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if jsonIndent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(exp)
	},
}

func init() {
	explainCmd.Flags().StringP("file", "f", "", "event JSON file (- for stdin)")
}
