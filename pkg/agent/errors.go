package agent

import (
	"context"
	"errors"

	"github.com/sipeed/picosearch/pkg/secrets"
	"github.com/sipeed/picosearch/pkg/tools"
)

var (
	// ErrInvalidState is returned when routing is asked to decide on a
	// conversation that holds no messages.
	ErrInvalidState = errors.New("invalid conversation state: no messages")
	// ErrTurnLimitExceeded is returned when the model keeps requesting tools
	// past the configured number of model calls for a single turn.
	ErrTurnLimitExceeded = errors.New("turn limit exceeded")
)

// UserFriendlyError converts a turn error into a one-line message for the
// terminal. The raw error is still logged by the caller.
func UserFriendlyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTurnLimitExceeded):
		return "The model kept requesting tools without answering. " +
			"Raise agent.max_tool_iterations or rephrase the question."
	case errors.Is(err, tools.ErrUnknownTool):
		return "The model asked for a tool that is not available: " + err.Error()
	case errors.Is(err, tools.ErrToolFailed):
		return "A tool call failed and the turn was aborted: " + err.Error()
	case errors.Is(err, secrets.ErrNotFound):
		return "A required secret is missing: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Check your network connection and try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	default:
		return err.Error()
	}
}
