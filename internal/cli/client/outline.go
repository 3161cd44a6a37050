package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type processRequest struct {
	URL string `json:"url"`
}

type processResponse struct {
	SessionID       string `json:"session_id"`
	ContractURL     string `json:"contract_url"`
	InitialOutline  string `json:"initial_outline"`
	ContractContent string `json:"contract_content"`
}

// OutlineCmd creates the outline command.
func OutlineCmd() *cobra.Command {
	var keepSession bool

	cmd := &cobra.Command{
		Use:   "outline <url>",
		Short: "Generate a proposal outline for a contract listing",
		Long: "Processes a contract listing URL and prints the generated proposal outline. " +
			"The session is deleted afterwards unless --keep-session is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runOutline(cmd, args[0], keepSession, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&keepSession, "keep-session", false, "Keep the session alive for follow-up chat")

	return cmd
}

func runOutline(cmd *cobra.Command, url string, keepSession, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp processResponse
	if err := api.Post("/api/contracts/process", processRequest{URL: url}, &resp); err != nil {
		return fmt.Errorf("failed to process contract: %w", err)
	}

	if !keepSession {
		defer func() {
			if err := api.Delete("/api/sessions/" + resp.SessionID); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to end session %s: %v\n", resp.SessionID, err)
			}
		}()
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	fmt.Println(resp.InitialOutline)
	if keepSession {
		fmt.Printf("\nSession: %s (use 'bidcraft chat %s <message>' for follow-ups)\n", resp.SessionID, resp.SessionID)
	}
	return nil
}
