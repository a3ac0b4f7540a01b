package providers

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/sipeed/picosearch/pkg/providers/protocoltypes"
)

type (
	ToolCall               = protocoltypes.ToolCall
	FunctionCall           = protocoltypes.FunctionCall
	LLMResponse            = protocoltypes.LLMResponse
	UsageInfo              = protocoltypes.UsageInfo
	Message                = protocoltypes.Message
	ToolDefinition         = protocoltypes.ToolDefinition
	ToolFunctionDefinition = protocoltypes.ToolFunctionDefinition
)

const (
	RoleSystem    = protocoltypes.RoleSystem
	RoleUser      = protocoltypes.RoleUser
	RoleAssistant = protocoltypes.RoleAssistant
	RoleTool      = protocoltypes.RoleTool
)

// LLMProvider is a chat-completion backend. Chat receives the full history
// and the tools the model may call, and returns one assistant response.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]any) (*LLMResponse, error)
	GetDefaultModel() string
}

// NormalizeToolCall fills Name/Arguments from the wire Function form (or the
// reverse) so downstream code can rely on the top-level fields.
func NormalizeToolCall(tc ToolCall) ToolCall {
	normalized := tc

	if normalized.Name == "" && normalized.Function != nil {
		normalized.Name = normalized.Function.Name
	}

	if len(normalized.Arguments) == 0 && normalized.Function != nil && normalized.Function.Arguments != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(normalized.Function.Arguments), &parsed); err == nil && parsed != nil {
			normalized.Arguments = parsed
		}
	}
	if normalized.Arguments == nil {
		normalized.Arguments = map[string]any{}
	} else {
		normalized.Arguments = maps.Clone(normalized.Arguments)
	}

	argsJSON, _ := json.Marshal(normalized.Arguments)
	fn := FunctionCall{Name: normalized.Name, Arguments: string(argsJSON)}
	if normalized.Function != nil && normalized.Function.Arguments != "" {
		fn.Arguments = normalized.Function.Arguments
	}
	normalized.Function = &fn
	if normalized.Type == "" {
		normalized.Type = "function"
	}

	return normalized
}

// CloneMessage returns a deep copy of msg so callers cannot mutate a message
// already stored in a conversation.
func CloneMessage(msg Message) Message {
	out := msg
	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			c := tc
			c.Arguments = maps.Clone(tc.Arguments)
			if tc.Function != nil {
				fn := *tc.Function
				c.Function = &fn
			}
			out.ToolCalls[i] = c
		}
	}
	return out
}
