package agent

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picosearch/pkg/agent"
	"github.com/sipeed/picosearch/pkg/providers"
	"github.com/sipeed/picosearch/pkg/tools"
)

type scriptedProvider struct {
	calls     int
	toolCalls [][]providers.ToolCall
	replies   []string
	err       error
}

func (p *scriptedProvider) Chat(
	_ context.Context,
	_ []providers.Message,
	_ []providers.ToolDefinition,
	_ string,
	_ map[string]any,
) (*providers.LLMResponse, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if len(p.toolCalls) > 0 {
		calls := p.toolCalls[0]
		p.toolCalls = p.toolCalls[1:]
		return &providers.LLMResponse{ToolCalls: calls, FinishReason: "tool_calls"}, nil
	}
	reply := "ok"
	if len(p.replies) > 0 {
		reply = p.replies[0]
		p.replies = p.replies[1:]
	}
	return &providers.LLMResponse{Content: reply}, nil
}

func (p *scriptedProvider) GetDefaultModel() string { return "scripted" }

type sliceReader struct {
	lines []string
}

func (r *sliceReader) ReadLine() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type staticSearch struct{}

func (staticSearch) Name() string               { return "tavily_search_results_json" }
func (staticSearch) Description() string        { return "search the web" }
func (staticSearch) Parameters() map[string]any { return map[string]any{"type": "object"} }

func (staticSearch) Execute(_ context.Context, _ map[string]any) *tools.ToolResult {
	return tools.DataResult([]map[string]string{{"url": "https://langchain-ai.github.io/langgraph/"}})
}

func newTestChat(p providers.LLMProvider) (*chatSession, *bytes.Buffer) {
	var out bytes.Buffer
	registry := tools.NewToolRegistry()
	registry.Register(staticSearch{})
	loop := agent.NewLoop(p, registry, nil, nil, agent.Options{})
	return newChatSession(loop, "1", &out), &out
}

func TestIsExitCommand(t *testing.T) {
	for _, in := range []string{"quit", "exit", "q", "QUIT", " Exit ", "Q"} {
		assert.True(t, isExitCommand(in), in)
	}
	for _, in := range []string{"", "quitting", "exit now", "2+2?"} {
		assert.False(t, isExitCommand(in), in)
	}
}

func TestRunREPL_ExitCommandSkipsModel(t *testing.T) {
	for _, cmd := range []string{"quit", "EXIT", "q"} {
		t.Run(cmd, func(t *testing.T) {
			p := &scriptedProvider{}
			chat, out := newTestChat(p)

			err := runREPL(t.Context(), &sliceReader{lines: []string{cmd, "never read"}}, chat)
			require.NoError(t, err)
			assert.Equal(t, 0, p.calls)
			assert.Equal(t, "Goodbye!\n", out.String())
		})
	}
}

func TestRunREPL_PrintsAnswersUntilEOF(t *testing.T) {
	p := &scriptedProvider{replies: []string{"4", "Paris"}}
	chat, out := newTestChat(p)

	err := runREPL(t.Context(), &sliceReader{lines: []string{"2+2?", "", "capital of France?"}}, chat)
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, "Assistant: 4\n\nAssistant: Paris\n\n\nGoodbye!\n", out.String())
}

func TestRunREPL_SearchTurnPrintsEveryMessage(t *testing.T) {
	p := &scriptedProvider{
		toolCalls: [][]providers.ToolCall{{{
			ID:        "call_1",
			Name:      "tavily_search_results_json",
			Arguments: map[string]any{"query": "LangGraph"},
		}}},
		replies: []string{"LangGraph is a library for stateful agents."},
	}
	chat, out := newTestChat(p)

	err := runREPL(t.Context(), &sliceReader{lines: []string{"What is LangGraph?", "q"}}, chat)
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, `Assistant: tavily_search_results_json({"query":"LangGraph"})`, lines[0])
	assert.Equal(t, `Assistant: [{"url":"https://langchain-ai.github.io/langgraph/"}]`, lines[1])
	assert.Equal(t, "Assistant: LangGraph is a library for stateful agents.", lines[2])
	assert.Empty(t, lines[3])
	assert.Equal(t, "Goodbye!", lines[4])
	assert.Len(t, chat.loop.History("1"), 4)
}

func TestRunREPL_ErrorIsReportedAndLoopContinues(t *testing.T) {
	p := &scriptedProvider{err: errors.New("deployment not found")}
	chat, out := newTestChat(p)

	err := runREPL(t.Context(), &sliceReader{lines: []string{"first", "second", "q"}}, chat)
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: model call failed: deployment not found"))
	assert.True(t, strings.HasSuffix(out.String(), "Goodbye!\n"))
	assert.NotContains(t, out.String(), "LangGraph")
}

func TestRunREPL_ReadErrorStops(t *testing.T) {
	chat, _ := newTestChat(&scriptedProvider{})
	boom := errors.New("tty gone")

	err := runREPL(t.Context(), errReader{err: boom}, chat)
	assert.ErrorIs(t, err, boom)
}

type errReader struct{ err error }

func (r errReader) ReadLine() (string, error) { return "", r.err }

func TestRunOnce_HistoryCarriesAcrossTurns(t *testing.T) {
	p := &scriptedProvider{replies: []string{"one", "two"}}
	chat, out := newTestChat(p)

	require.NoError(t, chat.runOnce(t.Context(), "a"))
	require.NoError(t, chat.runOnce(t.Context(), "b"))

	assert.Len(t, chat.loop.History("1"), 4)
	assert.Equal(t, "Assistant: one\nAssistant: two\n", out.String())
}

func TestBufioReader(t *testing.T) {
	var prompts bytes.Buffer
	r := bufioReader{reader: bufio.NewReader(strings.NewReader("hello\nlast")), out: &prompts}

	line, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	line, err = r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = r.ReadLine()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, strings.Repeat(prompt, 3), prompts.String())
}
