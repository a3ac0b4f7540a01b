package agent

import (
	"github.com/sipeed/picosearch/pkg/providers"
)

// Route is the next edge taken after a model step.
type Route string

const (
	RouteTools     Route = "tools"
	RouteTerminate Route = "terminate"
)

// RouteState picks the next step from the last message of state: any tool call
// sends the loop to tool execution, otherwise the turn ends.
func RouteState(state *State) (Route, error) {
	last, err := state.Last()
	if err != nil {
		return "", err
	}
	return routeMessage(last), nil
}

// RouteMessages applies the same decision to a bare message slice.
func RouteMessages(msgs []providers.Message) (Route, error) {
	if len(msgs) == 0 {
		return "", ErrInvalidState
	}
	return routeMessage(msgs[len(msgs)-1]), nil
}

func routeMessage(last providers.Message) Route {
	if len(last.ToolCalls) > 0 {
		return RouteTools
	}
	return RouteTerminate
}
