// Package engine answers user messages with Claude, using the conversation
// memory for context and recording both sides of every exchange.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/GarryCodespace/Jarvis/core"
	"github.com/GarryCodespace/Jarvis/memory"
	"github.com/GarryCodespace/Jarvis/tools"
)

// TracerName is the OpenTelemetry instrumentation name of the engine.
const TracerName = "github.com/GarryCodespace/Jarvis/engine"

var (
	// ErrEmptyMessage is returned for blank user messages.
	ErrEmptyMessage = errors.New("empty message")

	// ErrMaxTurns is returned when the model keeps calling tools past MaxTurns.
	ErrMaxTurns = errors.New("exceeded maximum turns")
)

// Messenger sends a message request to Claude.
// *anthropic.MessageService (client.Messages) implements it.
type Messenger interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Engine answers user messages over a memory.Manager.
type Engine struct {
	client Messenger
	memory *memory.Manager
	config *Config
	tools  map[string]tools.Tool
	order  []string
	logger *zap.Logger
	tracer trace.Tracer
}

// Option configures the engine.
type Option func(*Engine)

// WithConfig sets model and loop limits. A nil config uses DefaultConfig.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

// WithTools replaces the tools offered to the model. Called with no tools it
// disables tool use.
func WithTools(list ...tools.Tool) Option {
	return func(e *Engine) {
		e.setTools(list)
	}
}

// WithLogger sets the logger. The engine logs under the "engine" name.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.Named("engine")
		}
	}
}

// WithTracer sets the tracer. Defaults to the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEngine creates an engine. By default the model is offered the memory
// tools of mem.
func NewEngine(client Messenger, mem *memory.Manager, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		memory: mem,
		config: DefaultConfig,
		logger: zap.NewNop(),
		tracer: otel.Tracer(TracerName),
	}
	e.setTools(tools.MemoryTools(mem))
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) setTools(list []tools.Tool) {
	e.tools = make(map[string]tools.Tool, len(list))
	e.order = e.order[:0]
	for _, t := range list {
		name := t.Definition.ToolName
		if _, dup := e.tools[name]; !dup {
			e.order = append(e.order, name)
		}
		e.tools[name] = t
	}
}

// Input is one user turn.
type Input struct {
	// Message is the user's message.
	Message string

	// Source is where the message came from ("chat", "speech", ...).
	// Default: "chat"
	Source string

	// Skill switches the active skill before answering. Optional.
	Skill string

	// ProgrammingLanguage selects the language-aware skill prompt. Optional.
	ProgrammingLanguage string
}

// Output is the engine's answer.
type Output struct {
	// Text is the model's response.
	Text string

	// UserEventID and ResponseEventID identify the recorded events.
	UserEventID     string
	ResponseEventID string

	// ToolsUsed lists the tools called while answering, in call order.
	ToolsUsed []string

	// Turns is the number of Claude calls made.
	Turns int

	InputTokens  int64
	OutputTokens int64
}

// Respond records the user message, asks Claude for an answer with the
// enhanced conversation context, serves memory tool calls, and records the
// answer.
func (e *Engine) Respond(ctx context.Context, in *Input) (*Output, error) {
	if in == nil || strings.TrimSpace(in.Message) == "" {
		return nil, ErrEmptyMessage
	}
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "engine.respond",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", "anthropic"),
			attribute.String("gen_ai.request.model", e.config.Model),
			attribute.Int64("gen_ai.request.max_tokens", e.config.MaxTokens),
		),
	)
	defer span.End()

	if in.Skill != "" && in.Skill != e.memory.ActiveSkill() {
		e.memory.SetActiveSkill(in.Skill)
	}
	source := in.Source
	if source == "" {
		source = "chat"
	}

	out := &Output{UserEventID: e.memory.AddUserInput(in.Message, source)}
	span.SetAttributes(attribute.String("jarvis.skill", e.memory.ActiveSkill()))

	convo := e.memory.GetEnhancedConversationContext(e.config.ContextEntries)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.config.Model),
		MaxTokens: e.config.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: e.systemPrompt(convo, in.ProgrammingLanguage)}},
		Messages:  toMessages(convo.History),
	}
	if apiTools := e.apiTools(); len(apiTools) > 0 {
		params.Tools = apiTools
	}

	var text strings.Builder
	for {
		if out.Turns >= e.config.MaxTurns {
			err := fmt.Errorf("%w (%d)", ErrMaxTurns, e.config.MaxTurns)
			recordError(span, err)
			return nil, err
		}
		out.Turns++

		resp, err := e.client.New(ctx, params)
		if err != nil {
			err = fmt.Errorf("claude api error: %w", err)
			recordError(span, err)
			return nil, err
		}
		out.InputTokens += resp.Usage.InputTokens
		out.OutputTokens += resp.Usage.OutputTokens

		assistant, results, used := e.handleResponse(ctx, resp, &text)
		out.ToolsUsed = append(out.ToolsUsed, used...)
		if resp.StopReason != anthropic.StopReasonToolUse || len(results) == 0 {
			break
		}

		params.Messages = append(params.Messages,
			anthropic.NewAssistantMessage(assistant...),
			anthropic.NewUserMessage(results...),
		)
	}

	out.Text = strings.TrimSpace(text.String())
	out.ResponseEventID = e.memory.AddModelResponse(out.Text, map[string]interface{}{
		"model":                 e.config.Model,
		core.MetaProcessingTime: time.Since(start).Milliseconds(),
		"inputTokens":           out.InputTokens,
		"outputTokens":          out.OutputTokens,
		"toolsUsed":             out.ToolsUsed,
	})

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", out.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", out.OutputTokens),
		attribute.Int("jarvis.turns", out.Turns),
	)
	e.logger.Info("response recorded",
		zap.String("id", out.ResponseEventID),
		zap.Int("turns", out.Turns),
		zap.Strings("tools", out.ToolsUsed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// handleResponse collects the text of resp into text and executes its tool
// calls. It returns the assistant blocks to echo back, the tool results, and
// the names of the tools called.
func (e *Engine) handleResponse(ctx context.Context, resp *anthropic.Message, text *strings.Builder) ([]anthropic.ContentBlockParamUnion, []anthropic.ContentBlockParamUnion, []string) {
	var assistant, results []anthropic.ContentBlockParamUnion
	var used []string

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(block.Text)
			assistant = append(assistant, anthropic.NewTextBlock(block.Text))

		case "tool_use":
			assistant = append(assistant, anthropic.NewToolUseBlock(block.ID, block.Input, block.Name))
			used = append(used, block.Name)
			content, isErr := e.executeTool(ctx, block.Name, json.RawMessage(block.Input))
			results = append(results, anthropic.NewToolResultBlock(block.ID, content, isErr))
		}
	}
	return assistant, results, used
}

// executeTool runs a tool call and renders its result for the model.
func (e *Engine) executeTool(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	tool, ok := e.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool: %s", name), true
	}

	var base struct {
		Thought string `json:"thought,omitempty"`
	}
	if err := json.Unmarshal(input, &base); err != nil {
		return fmt.Sprintf("invalid tool input JSON: %s", err.Error()), true
	}

	ctx, span := e.tracer.Start(ctx, "engine.tool", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	e.logger.Debug("tool executed",
		zap.String("tool", name),
		zap.String("thought", strings.TrimSpace(base.Thought)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err != nil {
		recordError(span, err)
		return err.Error(), true
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("encode tool result: %s", err.Error()), true
	}
	return string(data), false
}

// apiTools converts the registered tools to Claude tool params.
func (e *Engine) apiTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(e.order))
	for _, name := range e.order {
		def := e.tools[name].Definition
		schema := anthropic.ToolInputSchemaParam{Properties: def.InputSchema["properties"]}
		if req, ok := def.InputSchema["required"].([]string); ok {
			schema.Required = req
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.ToolName,
			Description: anthropic.String(def.ToolDescription),
			InputSchema: schema,
		}})
	}
	return out
}

// systemPrompt combines the active skill prompt with a digest of the
// conversation.
func (e *Engine) systemPrompt(convo memory.EnhancedContext, lang string) string {
	var b strings.Builder

	skill := e.memory.GetSkillContext("", lang)
	if skill.Prompt != "" {
		b.WriteString(skill.Prompt)
	} else {
		b.WriteString(DefaultSystemPrompt)
	}

	if len(convo.Summary.Topics) > 0 {
		fmt.Fprintf(&b, "\n\nConversation topics so far: %s.", strings.Join(convo.Summary.Topics, ", "))
	}
	if convo.ThreadInfo.Current != nil && convo.ThreadInfo.Current.Topic != "" {
		fmt.Fprintf(&b, "\nCurrent thread: %s.", convo.ThreadInfo.Current.Topic)
	}
	for _, h := range convo.History {
		if h.IsContextual {
			b.WriteString("\nSome earlier messages were included because the user referred back to them.")
			break
		}
	}
	return b.String()
}

// toMessages converts history to alternating Claude messages. System events
// are skipped, consecutive messages of one role are merged, and the list
// starts with a user message.
func toMessages(history []memory.HistoryEntry) []anthropic.MessageParam {
	type turn struct {
		role  core.Role
		parts []string
	}
	var turns []turn

	for _, h := range history {
		if h.Role != core.RoleUser && h.Role != core.RoleModel {
			continue
		}
		content := strings.TrimSpace(h.Content)
		if content == "" {
			continue
		}
		if len(turns) == 0 && h.Role == core.RoleModel {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].role == h.Role {
			turns[n-1].parts = append(turns[n-1].parts, content)
			continue
		}
		turns = append(turns, turn{role: h.Role, parts: []string{content}})
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.parts, "\n\n"))
		if t.role == core.RoleUser {
			out = append(out, anthropic.NewUserMessage(block))
		} else {
			out = append(out, anthropic.NewAssistantMessage(block))
		}
	}
	return out
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Config holds engine configuration.
type Config struct {
	// Model is the Claude model to use.
	// Default: "claude-sonnet-4-20250514"
	Model string

	// MaxTokens is the maximum response tokens.
	// Default: 1024
	MaxTokens int64

	// MaxTurns caps Claude calls per Respond, including tool round trips.
	// Default: 4
	MaxTurns int

	// ContextEntries is the enhanced context window sent with each request.
	// 0 uses the memory default.
	ContextEntries int
}

// DefaultConfig returns sensible defaults for interactive chat.
var DefaultConfig = &Config{
	Model:     "claude-sonnet-4-20250514",
	MaxTokens: 1024,
	MaxTurns:  4,
}

// DefaultSystemPrompt is used when the active skill has no prompt.
const DefaultSystemPrompt = `You are Jarvis, a helpful desktop assistant.
Answer concisely. When the user refers to something said earlier that you cannot see, use the conversation tools to look it up.`
