package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/state"
)

func newRunCmd() *cobra.Command {
	var (
		input     string
		graphName string
		threadID  string
		timeout   time.Duration
		showState bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Invoke a graph once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return fmt.Errorf("--input is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}

			g, err := buildGraph(cfg, graphName, store)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var runOpts []graph.RunOption
			if threadID != "" {
				runOpts = append(runOpts, graph.WithThreadID(threadID))
			}

			final, err := g.Invoke(ctx, state.State{"input": input}, runOpts...)
			if err != nil {
				return err
			}

			if !showState {
				if output := final.GetString("output"); output != "" {
					fmt.Println(output)
					return nil
				}
			}
			data, err := json.MarshalIndent(final, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input passed to the graph under the \"input\" key")
	cmd.Flags().StringVar(&graphName, "graph", "", "graph to run (default: the starter agent)")
	cmd.Flags().StringVar(&threadID, "thread", "", "thread ID for checkpointed conversations")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this duration")
	cmd.Flags().BoolVar(&showState, "state", false, "print the full final state as JSON")
	return cmd
}
