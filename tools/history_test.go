package tools

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GarryCodespace/Jarvis/memory"
	"github.com/GarryCodespace/Jarvis/memory/embedder/hash"
	"github.com/GarryCodespace/Jarvis/memory/index/chromem"
)

func toolByName(t *testing.T, list []Tool, name string) Tool {
	t.Helper()
	for _, tool := range list {
		if tool.Definition.ToolName == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return Tool{}
}

func newManager(t *testing.T) *memory.Manager {
	t.Helper()
	m := memory.NewManager(nil, nil, memory.WithIndex(chromem.New(hash.New(128))))
	t.Cleanup(m.Close)
	m.AddUserInput("what is a trie", "chat")
	m.AddModelResponse("A trie is a prefix tree.", nil)
	m.AddUserInput("thanks", "chat")
	return m
}

func TestMemoryTools_Definitions(t *testing.T) {
	list := MemoryTools(newManager(t))
	require.Len(t, list, 3)

	search := toolByName(t, list, SearchHistoryTool).Definition
	props := search.InputSchema["properties"].(map[string]interface{})
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "thought")
	assert.Equal(t, []string{"query"}, search.InputSchema["required"])
}

func TestSearchHistory(t *testing.T) {
	tool := toolByName(t, MemoryTools(newManager(t)), SearchHistoryTool)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"prefix tree trie","limit":1}`))
	require.NoError(t, err)

	results := out.(map[string]interface{})["results"].([]memory.HistoryEntry)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "trie")

	_, err = tool.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestRecallConversation(t *testing.T) {
	tool := toolByName(t, MemoryTools(newManager(t)), RecallConversationTool)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"role":"user","include_summary":true}`))
	require.NoError(t, err)

	res := out.(map[string]interface{})
	messages := res["messages"].([]memory.HistoryEntry)
	require.Len(t, messages, 2)
	assert.Equal(t, "what is a trie", messages[0].Content)
	assert.Contains(t, res["summary"].(memory.Summary).Topics, "trie")

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"entries":1}`))
	require.NoError(t, err)
	assert.Len(t, out.(map[string]interface{})["messages"].([]memory.HistoryEntry), 1)
}

func TestImportantHistory(t *testing.T) {
	m := newManager(t)
	tool := toolByName(t, MemoryTools(m), ImportantHistoryTool)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 3, out.(map[string]interface{})["total_events"])
}

func TestWithThought(t *testing.T) {
	base := ObjectSchema(map[string]interface{}{"q": StringProperty("q")}, "q")
	got := WithThought(base, true)

	assert.Equal(t, []string{"q", "thought"}, got["required"])
	assert.Equal(t, []string{"q"}, base["required"])
	assert.NotContains(t, base["properties"], "thought")
}
