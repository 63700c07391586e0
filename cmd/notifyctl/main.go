package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var jsonIndent bool

var rootCmd = &cobra.Command{
	Use:           "notifyctl <command>",
	Short:         "Operator tooling for the ticket notifier",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonIndent, "pretty", true, "indent JSON output")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(tokenJWTCmd)
}

// readPayload reads an event file, or stdin when path is "-".
func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
