package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voxengine/internal/app/engine"
	"github.com/dkeye/voxengine/internal/domain"
)

func bind(t *testing.T, r *Registry, id domain.SessionID) *engine.Session {
	t.Helper()
	s := engine.New(engine.Options{ID: id})
	r.Bind(s, "callback", nil)
	return s
}

func rec(sid domain.SessionID, ev string) Record {
	return Record{Session: sid, Bus: "session", Event: ev, At: time.Now()}
}

func TestBindGetUnbind(t *testing.T) {
	r := NewRegistry(nil)
	s := bind(t, r, "s-1")

	got, ok := r.Get("s-1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, r.Len())

	r.Unbind("s-1")
	_, ok = r.Get("s-1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
	r.Unbind("s-1")
}

func TestListIsOrdered(t *testing.T) {
	r := NewRegistry(nil)
	bind(t, r, "s-b")
	time.Sleep(time.Millisecond)
	bind(t, r, "s-a")

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, domain.SessionID("s-b"), list[0].ID)
	assert.Equal(t, domain.SessionID("s-a"), list[1].ID)
	assert.Equal(t, "callback", list[0].Scenario)
}

func TestCancel(t *testing.T) {
	r := NewRegistry(nil)
	s := engine.New(engine.Options{ID: "s-1"})
	var canceled int
	r.Bind(s, "callback", func() { canceled++ })

	assert.True(t, r.Cancel("s-1"))
	assert.False(t, r.Cancel("s-2"))
	r.CancelAll()
	assert.Equal(t, 2, canceled)
}

func TestObserveReceivesRecords(t *testing.T) {
	r := NewRegistry(SimplePolicy{MaxDropped: 4})
	bind(t, r, "s-1")
	bind(t, r, "s-2")

	ch, cancel, err := r.Observe("s-1", 4)
	require.NoError(t, err)
	defer cancel()

	r.Publish(rec("s-2", "AppEvents.Started"))
	r.Publish(rec("s-1", "AppEvents.Started"))

	select {
	case got := <-ch:
		assert.Equal(t, domain.SessionID("s-1"), got.Session)
		assert.Equal(t, "AppEvents.Started", got.Event)
	default:
		t.Fatal("record not delivered")
	}
	assert.Empty(t, ch)
}

func TestObserveUnknownSession(t *testing.T) {
	r := NewRegistry(nil)
	_, _, err := r.Observe("nope", 1)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestUnbindClosesObservers(t *testing.T) {
	r := NewRegistry(nil)
	bind(t, r, "s-1")
	ch, cancel, err := r.Observe("s-1", 1)
	require.NoError(t, err)

	r.Unbind("s-1")
	_, open := <-ch
	assert.False(t, open)
	cancel()
}

func TestCancelClosesObserver(t *testing.T) {
	r := NewRegistry(nil)
	bind(t, r, "s-1")
	ch, cancel, err := r.Observe("s-1", 1)
	require.NoError(t, err)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel()
	r.Publish(rec("s-1", "AppEvents.Started"))
}

func TestSlowObserverIsClosed(t *testing.T) {
	r := NewRegistry(SimplePolicy{MaxDropped: 2})
	bind(t, r, "s-1")
	ch, _, err := r.Observe("s-1", 1)
	require.NoError(t, err)

	r.Publish(rec("s-1", "one"))
	r.Publish(rec("s-1", "two"))
	r.Publish(rec("s-1", "three"))

	got, open := <-ch
	require.True(t, open)
	assert.Equal(t, "one", got.Event)
	_, open = <-ch
	assert.False(t, open)
}
