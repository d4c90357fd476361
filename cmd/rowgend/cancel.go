package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func cancelCmd() *cobra.Command {
	var server, generationID string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a running generation on a serve instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if generationID == "" {
				return fmt.Errorf("--generation-id is required")
			}

			url := fmt.Sprintf("%s/api/generations/%s/cancel", server, generationID)
			resp, err := http.Post(url, "application/json", nil)
			if err != nil {
				return fmt.Errorf("cancel request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("cancel failed: server returned %s", resp.Status)
			}
			fmt.Printf("generation %s cancelled\n", generationID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of a running rowgend serve instance")
	cmd.Flags().StringVar(&generationID, "generation-id", "", "generation id to cancel (required)")
	_ = cmd.MarkFlagRequired("generation-id")

	return cmd
}
