package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentgraph-dev/agentgraph/llm"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models for the configured provider",
		Long: "models asks the provider for its model catalog where the " +
			"provider supports listing (Bedrock); otherwise it lists the " +
			"registered provider factories.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.Provider != "bedrock" {
				fmt.Printf("provider %q has no model listing API; registered providers:\n", cfg.Provider)
				for _, name := range llm.ListFactories() {
					fmt.Printf("  %s\n", name)
				}
				return nil
			}

			region := cfg.AWSRegion
			if region == "" {
				region = "us-east-1"
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			p, err := llm.NewBedrockProvider(ctx, region)
			if err != nil {
				return err
			}
			models, err := p.ListModels(ctx)
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Println(m)
			}
			return nil
		},
	}
	return cmd
}
