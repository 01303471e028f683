package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type chatToolCall struct {
	Name         string          `json:"name"`
	Arguments    json.RawMessage `json:"arguments"`
	OK           bool            `json:"ok"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

type chatResponse struct {
	SessionID     string         `json:"session_id"`
	AssistantText string         `json:"assistant_text,omitempty"`
	ToolCalls     []chatToolCall `json:"tool_calls,omitempty"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

func buildChatCmd() *cobra.Command {
	var sessionID, userID string
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one chat turn to the Orchestrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			var resp chatResponse
			payload := map[string]any{"session_id": sessionID, "user_id": userID, "message": args[0]}
			if err := newAPIClient(addr).postJSON(ctx, "/chat", payload, &resp); err != nil {
				return err
			}
			if resp.ErrorKind != "" {
				return fmt.Errorf("%s: %s", resp.ErrorKind, resp.ErrorMessage)
			}
			for _, tc := range resp.ToolCalls {
				status := "ok"
				if !tc.OK {
					status = tc.ErrorKind
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[tool] %s -> %s\n", tc.Name, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.AssistantText)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "chat session id (required)")
	cmd.Flags().StringVar(&userID, "user", "", "optional user id")
	return cmd
}
