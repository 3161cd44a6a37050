package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Answer    string   `json:"answer"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "chat <session-id> <message>",
		Short: "Ask a follow-up question in an existing session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChat(cmd, args[0], args[1], showSources, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the source previews behind the answer")

	return cmd
}

func runChat(cmd *cobra.Command, sessionID, message string, showSources, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var resp chatResponse
	if err := api.Post("/api/chat", chatRequest{SessionID: sessionID, Message: message}, &resp); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	fmt.Println(resp.Answer)
	if showSources && len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range resp.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}
