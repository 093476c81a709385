package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/GarryCodespace/Jarvis/memory"
)

// transcript is a scripted conversation:
//
//	start: 2025-03-01T09:00:00Z
//	entries:
//	  - role: user
//	    content: what is a trie
//	    offset: 0s
//	  - role: model
//	    content: A trie is a prefix tree.
//	    offset: 4s
type transcript struct {
	Start   time.Time         `yaml:"start"`
	Entries []transcriptEntry `yaml:"entries"`
}

type transcriptEntry struct {
	Role    string        `yaml:"role"`
	Content string        `yaml:"content"`
	Action  string        `yaml:"action"`
	Skill   string        `yaml:"skill"`
	Offset  time.Duration `yaml:"offset"` // since start
}

// replayReport is printed by replay.
type replayReport struct {
	Events           int                     `json:"events"`
	ActiveSkill      string                  `json:"activeSkill"`
	EnhancedContext  memory.EnhancedContext  `json:"enhancedContext"`
	OptimizedHistory memory.OptimizedHistory `json:"optimizedHistory"`
	Usage            memory.Usage            `json:"usage"`
	Search           []memory.HistoryEntry   `json:"search,omitempty"`
	Snapshot         []core.Event            `json:"snapshot,omitempty"`
}

func newReplayCmd() *cobra.Command {
	var (
		entries  int
		query    string
		snapshot bool
	)

	cmd := &cobra.Command{
		Use:   "replay <transcript.yaml>",
		Short: "Replay a scripted transcript and print the assembled context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", args[0], err)
			}
			var script transcript
			if err := yaml.Unmarshal(data, &script); err != nil {
				return fmt.Errorf("parse transcript %s: %w", args[0], err)
			}
			if script.Start.IsZero() {
				script.Start = time.Now().UTC()
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			now := script.Start
			m, err := a.newManager(memory.WithClock(func() time.Time { return now }))
			if err != nil {
				return err
			}
			defer m.Close()

			for i, e := range script.Entries {
				if e.Offset < 0 {
					return fmt.Errorf("entry %d: negative offset %s", i, e.Offset)
				}
				now = script.Start.Add(e.Offset)
				replayEntry(m, e)
			}

			report := replayReport{
				Events:           len(m.Snapshot()),
				ActiveSkill:      m.ActiveSkill(),
				EnhancedContext:  m.GetEnhancedConversationContext(entries),
				OptimizedHistory: m.GetOptimizedHistory(),
				Usage:            m.GetMemoryUsage(),
			}
			if query != "" {
				report.Search = m.SearchHistory(cmd.Context(), query, 5)
			}
			if snapshot {
				report.Snapshot = m.Snapshot()
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&entries, "entries", 0, "Enhanced context window (0 uses the configured default)")
	cmd.Flags().StringVar(&query, "query", "", "Also search the conversation for this text")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Include every stored event in the report")

	return cmd
}

// replayEntry records one transcript entry. A skill differing from the active
// one is switched to first, like a user changing mode mid-conversation.
func replayEntry(m *memory.Manager, e transcriptEntry) {
	if e.Skill != "" && e.Skill != m.ActiveSkill() {
		m.SetActiveSkill(e.Skill)
	}

	switch {
	case e.Role == string(core.RoleUser) && e.Action == "":
		m.AddUserInput(e.Content, "chat")
	case e.Role == string(core.RoleModel) && e.Action == "":
		m.AddModelResponse(e.Content, nil)
	case e.Action == core.ActionOCRExtraction:
		m.AddOCREvent(e.Content, nil)
	default:
		m.AddConversationEvent(core.EventInput{
			Role:    core.Role(e.Role),
			Content: e.Content,
			Action:  e.Action,
		})
	}
}
