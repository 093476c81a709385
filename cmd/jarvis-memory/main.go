// Package main is the entry point for the jarvis-memory CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags.
var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jarvis-memory",
		Short: "Conversation memory for the Jarvis assistant",
		Long: `jarvis-memory keeps a bounded, self-maintaining log of a conversation
between a user, a language model and the desktop around them, and assembles
context windows, threads and summaries from it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML)")

	root.AddCommand(newReplayCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newSkillsCmd())

	return root
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
