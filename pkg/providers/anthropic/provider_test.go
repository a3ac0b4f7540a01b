package anthropicprovider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestBuildParams_BasicMessage(t *testing.T) {
	params := buildParams([]Message{{Role: "user", Content: "Hello"}}, nil, "claude-sonnet-4-5",
		map[string]any{"max_tokens": 1024})

	if string(params.Model) != "claude-sonnet-4-5" {
		t.Errorf("Model = %q", params.Model)
	}
	if params.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", params.MaxTokens)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(params.Messages))
	}
}

func TestBuildParams_DefaultMaxTokens(t *testing.T) {
	params := buildParams([]Message{{Role: "user", Content: "Hello"}}, nil, "m", nil)
	if params.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", params.MaxTokens, defaultMaxTokens)
	}
}

func TestBuildParams_SystemMessage(t *testing.T) {
	params := buildParams([]Message{
		{Role: "system", Content: "You are helpful"},
		{Role: "user", Content: "Hi"},
	}, nil, "m", nil)

	if len(params.System) != 1 || params.System[0].Text != "You are helpful" {
		t.Fatalf("System = %#v", params.System)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(params.Messages))
	}
}

func TestBuildParams_MergesConsecutiveToolResults(t *testing.T) {
	params := buildParams([]Message{
		{Role: "user", Content: "compare go and rust"},
		{Role: "assistant", ToolCalls: []ToolCall{
			{ID: "call_1", Name: "tavily_search_results_json", Arguments: map[string]any{"query": "go"}},
			{ID: "call_2", Name: "tavily_search_results_json", Arguments: map[string]any{"query": "rust"}},
		}},
		{Role: "tool", Name: "tavily_search_results_json", ToolCallID: "call_1", Content: "[]"},
		{Role: "tool", Name: "tavily_search_results_json", ToolCallID: "call_2", Content: "[]"},
	}, nil, "m", nil)

	if len(params.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(params.Messages))
	}
	if got := len(params.Messages[2].Content); got != 2 {
		t.Fatalf("tool result blocks = %d, want 2", got)
	}
}

func TestBuildParams_WithTools(t *testing.T) {
	params := buildParams([]Message{{Role: "user", Content: "Hi"}}, []ToolDefinition{{
		Type: "function",
		Function: ToolFunctionDefinition{
			Name:        "tavily_search_results_json",
			Description: "search",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"query": map[string]any{"type": "string"}},
				"required":   []string{"query"},
			},
		},
	}}, "m", nil)

	if len(params.Tools) != 1 {
		t.Fatalf("len(Tools) = %d, want 1", len(params.Tools))
	}
	if req := params.Tools[0].OfTool.InputSchema.Required; len(req) != 1 || req[0] != "query" {
		t.Fatalf("Required = %v", req)
	}
}

func TestParseResponse_StopReasons(t *testing.T) {
	tests := []struct {
		stopReason anthropic.StopReason
		want       string
	}{
		{anthropic.StopReasonEndTurn, "stop"},
		{anthropic.StopReasonMaxTokens, "length"},
		{anthropic.StopReasonToolUse, "tool_calls"},
	}
	for _, tt := range tests {
		result := parseResponse(&anthropic.Message{StopReason: tt.stopReason})
		if result.FinishReason != tt.want {
			t.Errorf("StopReason %q: FinishReason = %q, want %q", tt.stopReason, result.FinishReason, tt.want)
		}
	}
}

func TestProvider_ChatRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var reqBody map[string]any
		_ = json.NewDecoder(r.Body).Decode(&reqBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       reqBody["model"],
			"stop_reason": "tool_use",
			"content": []map[string]any{
				{"type": "text", "text": "Searching."},
				{"type": "tool_use", "id": "toolu_1", "name": "tavily_search_results_json",
					"input": map[string]any{"query": "langgraph"}},
			},
			"usage": map[string]any{"input_tokens": 15, "output_tokens": 8},
		})
	}))
	defer server.Close()

	provider := NewProviderWithBaseURL("test-key", server.URL+"/v1")
	resp, err := provider.Chat(t.Context(), []Message{{Role: "user", Content: "Hello"}}, nil, "",
		map[string]any{"max_tokens": 1024})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Content != "Searching." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Arguments["query"] != "langgraph" {
		t.Fatalf("ToolCalls = %#v", resp.ToolCalls)
	}
	if resp.Usage.TotalTokens != 23 {
		t.Errorf("TotalTokens = %d, want 23", resp.Usage.TotalTokens)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                           defaultBaseURL,
		"https://proxy.local/v1/":    "https://proxy.local",
		" https://proxy.local ":      "https://proxy.local",
		"https://api.anthropic.com/": defaultBaseURL,
	}
	for in, want := range cases {
		if got := normalizeBaseURL(in); got != want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
