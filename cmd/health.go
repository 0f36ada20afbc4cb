package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the generation service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if t := a.cfg.Timeout(); t > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		health, err := a.client.Health(ctx)
		if err != nil {
			return err
		}

		color.Green("✓ %s is %s", a.cfg.Gateway.BaseURL, health.Status)
		if health.Version != "" {
			fmt.Printf("Version: %s\n", health.Version)
		}
		fmt.Printf("Schemas in memory: %d\n", health.SchemasInMemory)
		return nil
	},
}
