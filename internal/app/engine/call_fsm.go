package engine

import (
	"slices"

	"github.com/dkeye/voxengine/internal/domain"
)

// callTransitions lists the legal moves of the call state machine.
// Disconnected and Failed are terminal.
var callTransitions = map[domain.CallState][]domain.CallState{
	domain.CallAlerting:  {domain.CallConnected, domain.CallDisconnected, domain.CallFailed},
	domain.CallConnected: {domain.CallDisconnected, domain.CallFailed},
}

func canTransition(from, to domain.CallState) bool {
	return slices.Contains(callTransitions[from], to)
}

func (c *Call) transition(op string, to domain.CallState) error {
	if !canTransition(c.state, to) {
		return domain.NewError(domain.KindInvalidState, op, "call %s cannot go from %s to %s", c.id, c.state, to)
	}
	c.log.Info().Str("module", "engine.call").Str("from", c.state.String()).Str("to", to.String()).Msg("call state")
	c.state = to
	return nil
}
