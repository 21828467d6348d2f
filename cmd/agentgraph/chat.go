package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/agentgraph-dev/agentgraph/graph"
	"github.com/agentgraph-dev/agentgraph/llm"
	"github.com/agentgraph-dev/agentgraph/state"
)

func newChatCmd() *cobra.Command {
	var (
		graphName string
		threadID  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a graph interactively",
		Long: "chat starts a REPL. Each line is sent to the graph on one " +
			"conversation thread, so history accumulates through the " +
			"checkpointer between turns.",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if threadID == "" {
				threadID = "chat-" + uuid.New().String()[:8]
			}
			fmt.Printf("agentgraph chat (thread %s). Ctrl-D or \"exit\" to quit.\n", threadID)

			return chatLoop(cmd.Context(), g, threadID)
		},
	}

	cmd.Flags().StringVar(&graphName, "graph", "", "graph to chat with (default: the starter agent)")
	cmd.Flags().StringVar(&threadID, "thread", "", "resume an existing conversation thread")
	return cmd
}

func chatLoop(ctx context.Context, g *graph.CompiledGraph, threadID string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := chatHistoryPath()
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	defer saveChatHistory(line, historyPath)

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)

		// Every turn appends a user message; on a resumed thread it lands
		// on top of the checkpointed history.
		initial := state.AppendMessages(llm.UserMessage(input))

		final, err := g.Invoke(ctx, initial, graph.WithThreadID(threadID))
		if err != nil {
			log.Printf("run failed: %v", err)
			continue
		}

		if output := final.GetString("output"); output != "" {
			fmt.Println(output)
		}
	}
}

func chatHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".agentgraph_history")
}

func saveChatHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
