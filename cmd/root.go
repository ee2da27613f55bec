// Package cmd wires the aether CLI: serve runs the chat service,
// migrate applies the database schema, version prints build info.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aether",
	Short: "Aether - AI chat service",
	Long: `Aether is an AI chat service. It answers factual questions,
summarizes text, and writes creative pieces, persisting conversations
per user in PostgreSQL.

Run "aether serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
