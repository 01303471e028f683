package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	Status     string `json:"status"`
	ToolCount  int    `json:"tool_count"`
	AgentCount int    `json:"agent_count"`
}

func buildHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check hospitalcored's health and registered tool/agent counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var resp healthResponse
			if err := newAPIClient(addr).getJSON(ctx, "/health", &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\ntools: %d\nagents: %d\n", resp.Status, resp.ToolCount, resp.AgentCount)
			return nil
		},
	}
}
