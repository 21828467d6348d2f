// Command agentgraph runs agent workflows from the terminal: one-shot
// runs, an interactive chat REPL, a gRPC serving mode, and small
// inspection commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at release time.
var Version = "dev"

var (
	configFile string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:   "agentgraph",
		Short: "Run LangGraph-style agent workflows",
		Long: "agentgraph builds and runs agent workflow graphs: a model/tools " +
			"loop by default, or declarative graphs from the config file.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				os.Setenv("AGENTGRAPH_DEBUG", "true")
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", getEnv("AGENTGRAPH_CONFIG", ""), "config file (YAML)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agentgraph %s\n", Version)
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
