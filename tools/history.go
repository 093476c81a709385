package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/GarryCodespace/Jarvis/memory"
)

// Tool names served by MemoryTools.
const (
	SearchHistoryTool      = "search_history"
	RecallConversationTool = "recall_conversation"
	ImportantHistoryTool   = "important_history"
)

// defaultSearchLimit is used when the model omits a limit.
const defaultSearchLimit = 5

// maxToolEntries caps entries returned by a single tool call.
const maxToolEntries = 50

// Handler executes a tool call. input is the raw JSON object sent by the model.
type Handler func(ctx context.Context, input json.RawMessage) (interface{}, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition core.ToolDefinition
	Handler    Handler
}

// Execute runs the tool.
func (t Tool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	return t.Handler(ctx, input)
}

// MemoryTools returns the tools that let the model look back at the
// conversation held by m.
func MemoryTools(m *memory.Manager) []Tool {
	return []Tool{
		{
			Definition: core.ToolDefinition{
				ToolName:        SearchHistoryTool,
				ToolDescription: "Search earlier messages of this conversation by similarity. Use when the user refers to something discussed a while ago that is not in the recent messages.",
				InputSchema: BuildSchemaWithThought(map[string]interface{}{
					"query": StringProperty("What to look for, in a few words"),
					"limit": IntegerProperty("Maximum number of messages to return (default: 5)"),
				}, false, "query"),
			},
			Handler: searchHistory(m),
		},
		{
			Definition: core.ToolDefinition{
				ToolName:        RecallConversationTool,
				ToolDescription: "Get the most recent messages of this conversation, optionally filtered by who sent them.",
				InputSchema: BuildSchemaWithThought(map[string]interface{}{
					"entries":         IntegerProperty("Number of recent messages to return (default: 20)"),
					"role":            StringEnumProperty("Only return messages from this sender", "user", "model", "any"),
					"include_summary": BooleanProperty("Also return topics and skills of the conversation"),
				}, false),
			},
			Handler: recallConversation(m),
		},
		{
			Definition: core.ToolDefinition{
				ToolName:        ImportantHistoryTool,
				ToolDescription: "Get older messages that carried code, screen captures or other high-value content.",
				InputSchema:     BuildSchemaWithThought(map[string]interface{}{}, false),
			},
			Handler: importantHistory(m),
		},
	}
}

func searchHistory(m *memory.Manager) Handler {
	return func(ctx context.Context, input json.RawMessage) (interface{}, error) {
		var params struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
		if strings.TrimSpace(params.Query) == "" {
			return nil, fmt.Errorf("query is required")
		}

		results := m.SearchHistory(ctx, params.Query, clampEntries(params.Limit, defaultSearchLimit))
		return map[string]interface{}{
			"query":   params.Query,
			"results": results,
		}, nil
	}
}

func recallConversation(m *memory.Manager) Handler {
	return func(ctx context.Context, input json.RawMessage) (interface{}, error) {
		var params struct {
			Entries        int    `json:"entries"`
			Role           string `json:"role"`
			IncludeSummary bool   `json:"include_summary"`
		}
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		history := m.GetConversationHistory(clampEntries(params.Entries, 0))
		if params.Role != "" && params.Role != "any" {
			filtered := make([]memory.HistoryEntry, 0, len(history))
			for _, h := range history {
				if string(h.Role) == params.Role {
					filtered = append(filtered, h)
				}
			}
			history = filtered
		}

		out := map[string]interface{}{"messages": history}
		if params.IncludeSummary {
			out["summary"] = m.GetOptimizedHistory().Summary
		}
		return out, nil
	}
}

func importantHistory(m *memory.Manager) Handler {
	return func(ctx context.Context, input json.RawMessage) (interface{}, error) {
		opt := m.GetOptimizedHistory()
		return map[string]interface{}{
			"important":    opt.Important,
			"total_events": opt.TotalEvents,
		}, nil
	}
}

// clampEntries bounds n to [1, maxToolEntries]; n <= 0 yields def.
func clampEntries(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxToolEntries {
		return maxToolEntries
	}
	return n
}
