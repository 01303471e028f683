package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type toolDescriptor struct {
	Name          string          `json:"name"`
	OwningAgent   string          `json:"owning_agent"`
	Description   string          `json:"description"`
	InputSchema   json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema  json.RawMessage `json:"output_schema,omitempty"`
	SideEffecting bool            `json:"side_effecting"`
	Idempotent    bool            `json:"idempotent"`
}

type toolCallResponse struct {
	Success      bool            `json:"success"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	TraceID      string          `json:"trace_id"`
}

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and call tools on the Tool Registry",
	}
	cmd.AddCommand(buildToolsListCmd(), buildToolsCallCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every tool the Tool Registry has registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var body struct {
				Tools []toolDescriptor `json:"tools"`
			}
			if err := newAPIClient(addr).getJSON(ctx, "/tools/list", &body); err != nil {
				return err
			}
			for _, t := range body.Tools {
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-16s %s\n", t.Name, t.OwningAgent, t.Description)
			}
			return nil
		},
	}
}

func buildToolsCallCmd() *cobra.Command {
	var argumentsJSON string
	cmd := &cobra.Command{
		Use:   "call <tool-name>",
		Short: "Call a tool directly with JSON arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if argumentsJSON == "" {
				argumentsJSON = "{}"
			}
			var raw json.RawMessage
			if err := json.Unmarshal([]byte(argumentsJSON), &raw); err != nil {
				return fmt.Errorf("--arguments is not valid JSON: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var resp toolCallResponse
			payload := map[string]any{"name": args[0], "arguments": raw}
			if err := newAPIClient(addr).postJSON(ctx, "/tools/call", payload, &resp); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("%s: %s (trace_id=%s)", resp.ErrorKind, resp.ErrorMessage, resp.TraceID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", resp.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&argumentsJSON, "arguments", "{}", "tool arguments as a JSON object")
	return cmd
}
