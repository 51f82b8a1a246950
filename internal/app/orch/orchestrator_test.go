package orch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voxengine/internal/app"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
	"github.com/dkeye/voxengine/internal/scenario"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	o := New(ctx, app.NewRegistry(app.SimplePolicy{MaxDropped: 8}), scenario.Builtin(), core.NopSignaling{}, Settings{
		MailboxSize:     16,
		DefaultScenario: "forward-pstn",
		ObserverBuffer:  32,
	})
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		assert.NoError(t, o.Shutdown(sctx))
		cancel()
	})
	return o
}

func alert() AlertTrigger {
	return AlertTrigger{From: "+15550000001", To: "+15550000002", Params: scenario.Params{"to": "+15550000003"}}
}

func gone(t *testing.T, o *Orchestrator, sid domain.SessionID) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := o.Registry.Get(sid)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStartInboundAndForward(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	sid, callID, err := o.StartInbound(ctx, "", alert())
	require.NoError(t, err)
	require.NotEmpty(t, callID)

	infos := o.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "forward-pstn", infos[0].Scenario)

	snap, err := o.Snapshot(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "Running", snap.State)
	require.Len(t, snap.Calls, 2)
	assert.Equal(t, callID, snap.Calls[0].ID)
	out := snap.Calls[1].ID

	require.NoError(t, o.Notify(ctx, sid, core.Notification{Type: core.NotifyAnswered, Call: out}))
	snap, err = o.Snapshot(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "Connected", snap.Calls[0].State)
	assert.Len(t, snap.Routes, 2)

	require.NoError(t, o.Notify(ctx, sid, core.Notification{Type: core.NotifyDisconnected, Call: out}))
	gone(t, o, sid)
}

func TestUnknownScenario(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.StartHTTP(context.Background(), "nope", HTTPTrigger{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, o.Registry.Len())
}

func TestScenarioErrorEndsSession(t *testing.T) {
	o := newTestOrchestrator(t)

	_, _, err := o.StartInbound(context.Background(), "play-and-hangup", alert())
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.Eventually(t, func() bool { return o.Registry.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestUnknownSession(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	assert.ErrorIs(t, o.Terminate(ctx, "nope"), app.ErrUnknownSession)
	assert.ErrorIs(t, o.Notify(ctx, "nope", core.Notification{Type: core.NotifyAnswered}), app.ErrUnknownSession)
	_, err := o.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, app.ErrUnknownSession)
}

func TestNotifyErrorsComeBack(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	sid, _, err := o.StartInbound(ctx, "", alert())
	require.NoError(t, err)

	err = o.Notify(ctx, sid, core.Notification{Type: core.NotifyAnswered, Call: "missing"})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

func TestCustomData(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	sid, _, err := o.StartInbound(ctx, "", alert())
	require.NoError(t, err)

	require.NoError(t, o.SetCustomData(ctx, sid, "crm:42"))
	snap, err := o.Snapshot(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "crm:42", snap.CustomData)

	big := make([]byte, domain.MaxCustomDataLen+1)
	assert.ErrorIs(t, o.SetCustomData(ctx, sid, string(big)), domain.ErrValidation)
}

func TestTerminateStreamsLastEvents(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	sid, _, err := o.StartInbound(ctx, "", alert())
	require.NoError(t, err)

	records, cancel, err := o.Observe(sid)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, o.Terminate(ctx, sid))
	var events []string
	for rec := range records {
		events = append(events, rec.Event)
	}
	assert.Equal(t, []string{"AppEvents.Terminating", "AppEvents.Terminated"}, events)
	gone(t, o, sid)
}

func TestShutdownTerminatesEverything(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, err := o.StartInbound(ctx, "", alert())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, o.Registry.Len())

	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, o.Shutdown(sctx))
	assert.Zero(t, o.Registry.Len())
}
