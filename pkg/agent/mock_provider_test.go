package agent

import (
	"context"
	"sync"

	"github.com/sipeed/picosearch/pkg/providers"
	"github.com/sipeed/picosearch/pkg/tools"
)

type mockProvider struct {
	mu            sync.Mutex
	callCount     int
	responses     []providers.LLMResponse
	responseIndex int
	err           error
	requests      [][]providers.Message
	toolDefs      [][]providers.ToolDefinition
	options       []map[string]any
}

func (m *mockProvider) Chat(
	ctx context.Context,
	messages []providers.Message,
	tools []providers.ToolDefinition,
	model string,
	opts map[string]any,
) (*providers.LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.requests = append(m.requests, messages)
	m.toolDefs = append(m.toolDefs, tools)
	m.options = append(m.options, opts)

	if m.err != nil {
		return nil, m.err
	}

	// Repeat the last response once the sequence is exhausted.
	if len(m.responses) > 0 {
		if m.responseIndex >= len(m.responses) {
			m.responseIndex = len(m.responses) - 1
		}
		resp := m.responses[m.responseIndex]
		m.responseIndex++
		return &resp, nil
	}

	return &providers.LLMResponse{Content: "Mock response"}, nil
}

func (m *mockProvider) GetDefaultModel() string {
	return "mock-model"
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// searchTool is a stand-in for the web search tool.
type searchTool struct {
	name    string
	calls   []map[string]any
	fail    bool
	results []map[string]any
}

func (s *searchTool) Name() string {
	if s.name == "" {
		return "tavily_search_results_json"
	}
	return s.name
}

func (s *searchTool) Description() string { return "search the web" }

func (s *searchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []string{"query"},
	}
}

func (s *searchTool) Execute(_ context.Context, args map[string]any) *tools.ToolResult {
	s.calls = append(s.calls, args)
	if s.fail {
		return tools.ErrorResult("search backend unavailable")
	}
	if s.results != nil {
		return tools.DataResult(s.results)
	}
	return tools.DataResult([]map[string]any{{"title": "LangGraph", "url": "https://example.com"}})
}

func toolCallResponse(calls ...providers.ToolCall) providers.LLMResponse {
	return providers.LLMResponse{ToolCalls: calls, FinishReason: "tool_calls"}
}

func searchCall(id, query string) providers.ToolCall {
	return providers.ToolCall{
		ID:        id,
		Name:      "tavily_search_results_json",
		Arguments: map[string]any{"query": query},
	}
}
