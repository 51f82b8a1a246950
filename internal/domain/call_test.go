package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallStateTerminal(t *testing.T) {
	cases := []struct {
		state    CallState
		terminal bool
		name     string
	}{
		{CallAlerting, false, "Alerting"},
		{CallConnected, false, "Connected"},
		{CallDisconnected, true, "Disconnected"},
		{CallFailed, true, "Failed"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.terminal, tc.state.IsTerminal(), tc.name)
		assert.Equal(t, tc.name, tc.state.String())
	}
}
