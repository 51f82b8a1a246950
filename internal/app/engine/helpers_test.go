package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

func clockworkFake() *clockwork.FakeClock { return clockwork.NewFakeClock() }

func newTestSession(t *testing.T) (*Session, *clockwork.FakeClock) {
	t.Helper()
	clock := clockworkFake()
	return New(Options{Clock: clock}), clock
}

func startHTTP(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.StartHTTP(HTTPRequest{Method: "POST", Path: "/scenario"}))
}

// settle drains the mailbox until cond holds. Timer callbacks of the fake
// clock may post from another goroutine.
func settle(t *testing.T, s *Session, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.Drain()
		return cond()
	}, time.Second, 5*time.Millisecond)
}

// kinds records the kinds dispatched on a bus.
type kinds struct{ got []event.Kind }

func record(t *testing.T, b *event.Bus, ks ...event.Kind) *kinds {
	t.Helper()
	r := &kinds{}
	for _, k := range ks {
		_, err := b.Register(k, func(ev event.Event) error {
			r.got = append(r.got, ev.Kind())
			return nil
		})
		require.NoError(t, err)
	}
	return r
}

func notify(t *testing.T, s *Session, n core.Notification) {
	t.Helper()
	require.NoError(t, s.HandleNotification(n))
}

func videoConference(t *testing.T, s *Session) *Conference {
	t.Helper()
	c, err := s.CreateConference(domain.ConferenceParameters{Name: "room", Variant: domain.VideoEnabled})
	require.NoError(t, err)
	return c
}
