package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// SuggestedContract is one entry of the suggested-contracts response.
type SuggestedContract struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type suggestedResponse struct {
	Contracts []SuggestedContract `json:"contracts"`
}

// SuggestCmd creates the suggest command.
func SuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List suggested contract opportunities",
		Long:  "Fetches recently modified contract opportunities from the configured search page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSuggest(cmd, outputJSON)
		},
	}
}

func runSuggest(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp suggestedResponse
	if err := api.Get("/api/contracts/suggested", &resp); err != nil {
		return fmt.Errorf("failed to fetch suggested contracts: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(resp.Contracts)
	}

	if len(resp.Contracts) == 0 {
		fmt.Println("No contract opportunities found.")
		return nil
	}

	for i, c := range resp.Contracts {
		fmt.Printf("%d. %s\n   %s\n", i+1, c.Title, c.URL)
	}
	return nil
}
