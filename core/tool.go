package core

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	// ToolName is the unique tool name the model calls.
	ToolName string `json:"name"`

	// ToolDescription tells the model when to use the tool.
	ToolDescription string `json:"description"`

	// InputSchema is the JSON Schema of the tool input object.
	InputSchema map[string]interface{} `json:"input_schema"`
}
