package web_search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/tools"
	"github.com/sipeed/picosearch/pkg/tools/common"
	"github.com/sipeed/picosearch/pkg/utils"
)

const (
	ToolName          = "tavily_search_results_json"
	defaultTavilyURL  = "https://api.tavily.com/search"
	defaultMaxResults = 2
	searchTimeout     = 10 * time.Second
)

var ErrMissingAPIKey = errors.New("tavily: API key is missing")

// SearchResult is one ranked hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

type TavilySearchProvider struct {
	apiKey  string
	baseURL string
	depth   string
	client  *http.Client
}

func NewTavilySearchProvider(apiKey, baseURL, depth, proxy string) (*TavilySearchProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := common.CreateHTTPClient(proxy, searchTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if baseURL == "" {
		baseURL = defaultTavilyURL
	}
	if depth == "" {
		depth = "basic"
	}
	return &TavilySearchProvider{apiKey: apiKey, baseURL: baseURL, depth: depth, client: client}, nil
}

// Search posts the query to Tavily. 429 and 5xx responses are retried with
// doubling backoff until the retry cap or ctx expires.
func (p *TavilySearchProvider) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	payload := map[string]any{
		"api_key":             p.apiKey,
		"query":               query,
		"search_depth":        p.depth,
		"include_answer":      false,
		"include_images":      false,
		"include_raw_content": false,
		"max_results":         count,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", common.UserAgent)

	resp, err := utils.DoRequestWithRetry(p.client, req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api error (status %d): %s",
			resp.StatusCode, utils.Truncate(strings.TrimSpace(string(body)), 300))
	}

	var searchResp struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := searchResp.Results
	if len(results) > count {
		results = results[:count]
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// WebSearchTool exposes a SearchProvider to the model.
type WebSearchTool struct {
	provider   SearchProvider
	maxResults int
}

type WebSearchToolOptions struct {
	TavilyEnabled    bool
	TavilyAPIKey     string
	TavilyBaseURL    string
	TavilyMaxResults int
	SearchDepth      string
	Proxy            string
}

// NewWebSearchTool returns nil, nil when search is disabled.
func NewWebSearchTool(opts WebSearchToolOptions) (*WebSearchTool, error) {
	if !opts.TavilyEnabled {
		return nil, nil
	}
	provider, err := NewTavilySearchProvider(opts.TavilyAPIKey, opts.TavilyBaseURL, opts.SearchDepth, opts.Proxy)
	if err != nil {
		return nil, err
	}
	return NewWebSearchToolWithProvider(provider, opts.TavilyMaxResults), nil
}

func NewWebSearchToolWithProvider(provider SearchProvider, maxResults int) *WebSearchTool {
	if maxResults < 1 || maxResults > 10 {
		maxResults = defaultMaxResults
	}
	return &WebSearchTool{provider: provider, maxResults: maxResults}
}

func (t *WebSearchTool) Name() string {
	return ToolName
}

func (t *WebSearchTool) Description() string {
	return "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events. Input should be a search query."
}

func (t *WebSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "search query to look up",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Number of results (1-10)",
				"minimum":     1.0,
				"maximum":     10.0,
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) *tools.ToolResult {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return tools.ErrorResult("query is required")
	}

	count := t.maxResults
	if c, ok := intArg(args["max_results"]); ok && c >= 1 && c <= 10 {
		count = c
	}

	results, err := t.provider.Search(ctx, query, count)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("search failed: %v", err)).WithError(err)
	}

	logger.DebugCF("tool", "Search returned results",
		map[string]any{"tool": ToolName, "query": query, "count": len(results)})
	return tools.DataResult(results)
}

func intArg(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}
