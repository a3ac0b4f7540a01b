package anthropicprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sipeed/picosearch/pkg/logger"
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
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
)

type Provider struct {
	client  *anthropic.Client
	baseURL string
}

func NewProvider(apiKey string) *Provider {
	return NewProviderWithBaseURL(apiKey, "")
}

func NewProviderWithBaseURL(apiKey, apiBase string) *Provider {
	baseURL := normalizeBaseURL(apiBase)
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &Provider{client: &client, baseURL: baseURL}
}

func (p *Provider) Chat(
	ctx context.Context,
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) (*LLMResponse, error) {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	resp, err := p.client.Messages.New(ctx, buildParams(messages, tools, model, options))
	if err != nil {
		return nil, fmt.Errorf("claude API call: %w", err)
	}
	return parseResponse(resp), nil
}

func (p *Provider) GetDefaultModel() string {
	return defaultModel
}

func (p *Provider) BaseURL() string {
	return p.baseURL
}

// buildParams converts the history. Anthropic requires every tool_result for
// one assistant turn in a single user message, so consecutive tool messages
// are merged.
func buildParams(
	messages []Message,
	tools []ToolDefinition,
	model string,
	options map[string]any,
) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case protocoltypes.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case protocoltypes.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Arguments
				if args == nil && tc.Function != nil && tc.Function.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
				}
				if args == nil {
					args = map[string]any{}
				}
				name := tc.Name
				if name == "" && tc.Function != nil {
					name = tc.Function.Name
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, name))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case protocoltypes.RoleTool:
			var results []anthropic.ContentBlockParamUnion
			for i < len(messages) && messages[i].Role == protocoltypes.RoleTool {
				results = append(results,
					anthropic.NewToolResultBlock(messages[i].ToolCallID, messages[i].Content, false))
				i++
			}
			i--
			out = append(out, anthropic.NewUserMessage(results...))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := int64(defaultMaxTokens)
	switch mt := options["max_tokens"].(type) {
	case int:
		maxTokens = int64(mt)
	case float64:
		maxTokens = int64(mt)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  out,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if temp, ok := options["temperature"].(float64); ok {
		params.Temperature = anthropic.Float(temp)
	}
	if len(tools) > 0 {
		params.Tools = translateTools(tools)
	}
	return params
}

func translateTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tool := anthropic.ToolParam{
			Name: t.Function.Name,
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: t.Function.Parameters["properties"],
			},
		}
		if desc := t.Function.Description; desc != "" {
			tool.Description = anthropic.String(desc)
		}
		switch req := t.Function.Parameters["required"].(type) {
		case []string:
			tool.InputSchema.Required = req
		case []any:
			for _, r := range req {
				if s, ok := r.(string); ok {
					tool.InputSchema.Required = append(tool.InputSchema.Required, s)
				}
			}
		}
		result = append(result, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return result
}

func parseResponse(resp *anthropic.Message) *LLMResponse {
	var content strings.Builder
	var toolCalls []ToolCall

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.AsText().Text)
		case "tool_use":
			tu := block.AsToolUse()
			var args map[string]any
			if err := json.Unmarshal(tu.Input, &args); err != nil {
				logger.WarnCF("anthropic", "Failed to decode tool call input",
					map[string]any{"tool": tu.Name, "error": err.Error()})
				args = map[string]any{"raw": string(tu.Input)}
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        tu.ID,
				Type:      "function",
				Name:      tu.Name,
				Arguments: args,
				Function:  &FunctionCall{Name: tu.Name, Arguments: string(tu.Input)},
			})
		}
	}

	finishReason := "stop"
	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		finishReason = "tool_calls"
	case anthropic.StopReasonMaxTokens:
		finishReason = "length"
	}

	return &LLMResponse{
		Content:      content.String(),
		ToolCalls:    toolCalls,
		FinishReason: finishReason,
		Usage: &UsageInfo{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	base = strings.TrimSuffix(base, "/v1")
	if base == "" {
		return defaultBaseURL
	}
	return base
}
