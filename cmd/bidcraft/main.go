package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bidcraft/bidcraft/internal/cli"
	"github.com/bidcraft/bidcraft/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bidcraft",
		Short: "Bidcraft CLI - proposal drafting from contract listings",
		Long: `Bidcraft CLI turns government contract listings into proposal outlines.

Environment variables:
  BIDCRAFT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.SuggestCmd())
	rootCmd.AddCommand(client.OutlineCmd())
	rootCmd.AddCommand(client.ChatCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
