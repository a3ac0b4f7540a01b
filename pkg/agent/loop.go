// Package agent runs the conversational tool loop: the model answers or asks
// for tools, tool results are fed back, and the cycle repeats until the model
// produces a final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sipeed/picosearch/pkg/config"
	"github.com/sipeed/picosearch/pkg/logger"
	"github.com/sipeed/picosearch/pkg/observability"
	"github.com/sipeed/picosearch/pkg/providers"
	"github.com/sipeed/picosearch/pkg/session"
	"github.com/sipeed/picosearch/pkg/tools"
	"github.com/sipeed/picosearch/pkg/utils"
)

// LoopState is a node of the per-turn state machine.
type LoopState string

const (
	StateAwaitingModel  LoopState = "AWAITING_MODEL"
	StateAwaitingRoute  LoopState = "AWAITING_ROUTE"
	StateExecutingTools LoopState = "EXECUTING_TOOLS"
	StateTerminated     LoopState = "TERMINATED"
)

const defaultMaxModelCalls = 10

// StepObserver is called with every message the loop appends after the user
// input, in order, as soon as it is produced.
type StepObserver func(msg providers.Message)

// Checkpointer stores conversation history per thread between turns.
type Checkpointer interface {
	GetHistory(key string) []providers.Message
	SetHistory(key string, history []providers.Message)
}

// Options configures a Loop.
type Options struct {
	Model         string
	SystemPrompt  string
	MaxModelCalls int
	LLMOptions    map[string]any
	Observer      StepObserver
}

// TurnResult describes one completed (or aborted) turn.
type TurnResult struct {
	ThreadID    string
	Answer      string
	Messages    []providers.Message
	Transitions []LoopState
	ModelCalls  int
}

// Loop runs conversation turns against a model and a tool registry.
type Loop struct {
	provider    providers.LLMProvider
	registry    *tools.ToolRegistry
	executor    *tools.Executor
	checkpoints Checkpointer
	opts        Options
}

// NewLoop wires the collaborators of the conversation loop. A nil registry
// means no tools; a nil checkpointer keeps history in a private in-memory
// store.
func NewLoop(
	provider providers.LLMProvider,
	registry *tools.ToolRegistry,
	executor *tools.Executor,
	checkpoints Checkpointer,
	opts Options,
) *Loop {
	if registry == nil {
		registry = tools.NewToolRegistry()
	}
	if executor == nil {
		executor = tools.NewExecutor(registry, tools.FailurePolicyReport)
	}
	if checkpoints == nil {
		checkpoints = session.NewSessionManager()
	}
	if opts.MaxModelCalls <= 0 {
		opts.MaxModelCalls = defaultMaxModelCalls
	}
	if opts.Model == "" {
		opts.Model = provider.GetDefaultModel()
	}
	return &Loop{
		provider:    provider,
		registry:    registry,
		executor:    executor,
		checkpoints: checkpoints,
		opts:        opts,
	}
}

// NewLoopFromConfig builds a loop whose limits, failure policy and model
// options come from cfg.
func NewLoopFromConfig(
	cfg *config.Config,
	provider providers.LLMProvider,
	model string,
	registry *tools.ToolRegistry,
	checkpoints Checkpointer,
) (*Loop, error) {
	cfg.RLock()
	policyName := cfg.Agent.ToolFailurePolicy
	maxCalls := cfg.Agent.MaxToolIterations
	systemPrompt := cfg.Agent.SystemPrompt
	cfg.RUnlock()

	policy, err := tools.ParseFailurePolicy(policyName)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = tools.NewToolRegistry()
	}

	return NewLoop(provider, registry, tools.NewExecutor(registry, policy), checkpoints, Options{
		Model:         model,
		SystemPrompt:  systemPrompt,
		MaxModelCalls: maxCalls,
		LLMOptions:    cfg.LLMOptions(),
	}), nil
}

// SetObserver replaces the step observer. It must not be called while a turn
// is running.
func (l *Loop) SetObserver(fn StepObserver) {
	l.opts.Observer = fn
}

func (l *Loop) Model() string {
	return l.opts.Model
}

// ToolFailurePolicy reports how a failing tool call affects the turn.
func (l *Loop) ToolFailurePolicy() tools.FailurePolicy {
	return l.executor.Policy()
}

// History returns the checkpointed messages of threadID.
func (l *Loop) History(threadID string) []providers.Message {
	return l.checkpoints.GetHistory(threadID)
}

// RunTurn appends input to the thread's history and drives the state machine
// until the model answers without tool calls. On error the returned result
// still describes the steps taken and the history so far stays checkpointed.
func (l *Loop) RunTurn(ctx context.Context, threadID, input string) (*TurnResult, error) {
	if threadID == "" {
		threadID = config.DefaultThreadID
	}

	ctx, span := observability.StartSpan(ctx, "agent.turn",
		attribute.String("thread_id", threadID),
		attribute.String("model", l.opts.Model),
	)
	res, err := l.runTurn(ctx, threadID, input)
	span.SetAttributes(attribute.Int("model_calls", res.ModelCalls))
	observability.EndSpan(span, err)

	if err != nil {
		logger.ErrorCF("agent", "Turn failed", map[string]any{
			"thread_id":   threadID,
			"model_calls": res.ModelCalls,
			"error":       err.Error(),
		})
	}
	return res, err
}

func (l *Loop) runTurn(ctx context.Context, threadID, input string) (*TurnResult, error) {
	state := NewState(threadID, l.checkpoints.GetHistory(threadID))
	start := state.Len()
	res := &TurnResult{ThreadID: threadID}

	finish := func(err error) (*TurnResult, error) {
		l.checkpoints.SetHistory(threadID, state.Messages())
		res.Messages = state.Messages()[start:]
		return res, err
	}

	logger.InfoCF("agent", "Processing user input", map[string]any{
		"thread_id": threadID,
		"history":   start,
		"preview":   utils.Truncate(input, 80),
	})
	state.Append(providers.Message{Role: providers.RoleUser, Content: input})
	l.checkpoints.SetHistory(threadID, state.Messages())

	current := StateAwaitingModel
	res.Transitions = append(res.Transitions, current)

	for current != StateTerminated {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		var next LoopState
		switch current {
		case StateAwaitingModel:
			if res.ModelCalls >= l.opts.MaxModelCalls {
				return finish(fmt.Errorf("%w: %d model calls without a final answer",
					ErrTurnLimitExceeded, res.ModelCalls))
			}
			res.ModelCalls++
			msg, err := l.callModel(ctx, state, res.ModelCalls)
			if err != nil {
				return finish(err)
			}
			state.Append(msg)
			l.checkpoints.SetHistory(threadID, state.Messages())
			l.observe(msg)
			next = StateAwaitingRoute

		case StateAwaitingRoute:
			route, err := RouteState(state)
			if err != nil {
				return finish(err)
			}
			if route == RouteTools {
				next = StateExecutingTools
			} else {
				last, _ := state.Last()
				res.Answer = last.Content
				next = StateTerminated
			}

		case StateExecutingTools:
			results, err := l.executeTools(ctx, state)
			if err != nil {
				return finish(err)
			}
			state.Append(results...)
			l.checkpoints.SetHistory(threadID, state.Messages())
			for _, m := range results {
				l.observe(m)
			}
			next = StateAwaitingModel
		}

		logger.DebugCF("agent", "State transition", map[string]any{
			"thread_id": threadID,
			"from":      string(current),
			"to":        string(next),
		})
		current = next
		res.Transitions = append(res.Transitions, current)
	}

	logger.InfoCF("agent", "Turn completed", map[string]any{
		"thread_id":   threadID,
		"model_calls": res.ModelCalls,
		"answer_len":  len(res.Answer),
	})
	return finish(nil)
}

func (l *Loop) callModel(ctx context.Context, state *State, call int) (providers.Message, error) {
	ctx, span := observability.StartSpan(ctx, "agent.model_call", attribute.Int("call", call))

	msgs := state.Messages()
	if l.opts.SystemPrompt != "" {
		msgs = append([]providers.Message{{Role: providers.RoleSystem, Content: l.opts.SystemPrompt}}, msgs...)
	}
	var opts map[string]any
	if l.opts.LLMOptions != nil {
		opts = maps.Clone(l.opts.LLMOptions)
	}

	logger.DebugCF("agent", "LLM request", map[string]any{
		"model":     l.opts.Model,
		"messages":  len(msgs),
		"tools":     l.registry.Count(),
		"iteration": call,
	})

	resp, err := l.provider.Chat(ctx, msgs, l.registry.ToProviderDefs(), l.opts.Model, opts)
	if err != nil {
		err = fmt.Errorf("model call failed: %w", err)
		observability.EndSpan(span, err)
		return providers.Message{}, err
	}

	msg := providers.Message{Role: providers.RoleAssistant, Content: resp.Content}
	for _, raw := range resp.ToolCalls {
		tc := providers.NormalizeToolCall(raw)
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, tc)
	}

	fields := map[string]any{
		"content_len":   len(resp.Content),
		"tool_calls":    len(msg.ToolCalls),
		"finish_reason": resp.FinishReason,
	}
	if resp.Usage != nil {
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	logger.DebugCF("agent", "LLM response", fields)

	span.SetAttributes(attribute.Int("tool_calls", len(msg.ToolCalls)))
	observability.EndSpan(span, nil)
	return msg, nil
}

func (l *Loop) executeTools(ctx context.Context, state *State) ([]providers.Message, error) {
	last, err := state.Last()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "agent.tools", attribute.Int("tool_calls", len(last.ToolCalls)))
	results, err := l.executor.Execute(ctx, last)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		logger.DebugCF("agent", "Tool result", map[string]any{
			"tool":         r.Name,
			"tool_call_id": r.ToolCallID,
			"preview":      utils.Truncate(r.Content, 200),
		})
	}
	return results, nil
}

func (l *Loop) observe(msg providers.Message) {
	if l.opts.Observer != nil {
		l.opts.Observer(msg)
	}
}

// FormatToolCalls renders the tool calls of msg as name(args) lines for
// display.
func FormatToolCalls(msg providers.Message) []string {
	out := make([]string, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args, _ := json.Marshal(tc.Arguments)
		out = append(out, fmt.Sprintf("%s(%s)", tc.Name, utils.Truncate(string(args), 200)))
	}
	return out
}
