package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/app/engine"
	"github.com/dkeye/voxengine/internal/domain"
)

var ErrUnknownSession = errors.New("unknown session")

// Record is what observers receive for every event dispatched in a session.
type Record struct {
	Session domain.SessionID  `json:"session"`
	Bus     string            `json:"bus"`
	Event   string            `json:"event"`
	At      time.Time         `json:"at"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type SessionInfo struct {
	ID        domain.SessionID `json:"id"`
	Scenario  string           `json:"scenario"`
	StartedAt time.Time        `json:"started_at"`
}

type observer struct {
	ch      chan Record
	dropped int
}

type sessionEntry struct {
	Session   *engine.Session
	Scenario  string
	StartedAt time.Time
	Cancel    context.CancelFunc
	observers map[uint64]*observer
}

// Registry tracks the live sessions of the process and their event observers.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
	policy   Policy
	nextObs  uint64
}

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		sessions: make(map[domain.SessionID]*sessionEntry),
		policy:   policy,
	}
}

func (r *Registry) Bind(s *engine.Session, scenario string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = &sessionEntry{
		Session:   s,
		Scenario:  scenario,
		StartedAt: time.Now(),
		Cancel:    cancel,
		observers: make(map[uint64]*observer),
	}
	log.Info().Str("module", "app.registry").Str("session", string(s.ID())).Str("scenario", scenario).Msg("bound session")
}

func (r *Registry) Get(sid domain.SessionID) (*engine.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets a session and closes its observers.
func (r *Registry) Unbind(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	for id, o := range e.observers {
		close(o.ch)
		delete(e.observers, id)
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Msg("unbind session")
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, SessionInfo{ID: sid, Scenario: e.Scenario, StartedAt: e.StartedAt})
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b SessionInfo) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(sid domain.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("session", string(sid)).Msg("canceled session")
	return true
}

// CancelAll cancels every live session.
func (r *Registry) CancelAll() {
	r.mu.RLock()
	cancels := make([]context.CancelFunc, 0, len(r.sessions))
	for _, e := range r.sessions {
		if e.Cancel != nil {
			cancels = append(cancels, e.Cancel)
		}
	}
	r.mu.RUnlock()
	for _, c := range cancels {
		c()
	}
}

// Observe subscribes to the records of one session. The channel is closed
// when the session ends, when the observer is too slow for the policy, or
// when the returned cancel func is called.
func (r *Registry) Observe(sid domain.SessionID, buffer int) (<-chan Record, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, nil, ErrUnknownSession
	}
	if buffer <= 0 {
		buffer = 1
	}
	r.nextObs++
	id := r.nextObs
	o := &observer{ch: make(chan Record, buffer)}
	e.observers[id] = o
	cancel := func() { r.dropObserver(sid, id) }
	return o.ch, cancel, nil
}

func (r *Registry) dropObserver(sid domain.SessionID, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return
	}
	if o, ok := e.observers[id]; ok {
		close(o.ch)
		delete(e.observers, id)
	}
}

// Publish fans a record out to the observers of its session without
// blocking; slow observers are handled by the policy. Records of one session
// are published from that session's thread only.
func (r *Registry) Publish(rec Record) {
	var slow []uint64
	r.mu.RLock()
	e, ok := r.sessions[rec.Session]
	if !ok {
		r.mu.RUnlock()
		return
	}
	for id, o := range e.observers {
		select {
		case o.ch <- rec:
			continue
		default:
		}
		o.dropped++
		switch r.policy.OnBackPressure(rec.Session, o.dropped) {
		case CloseObserver:
			slow = append(slow, id)
		case DropEvent, NoAction:
		}
	}
	r.mu.RUnlock()

	for _, id := range slow {
		log.Warn().Str("module", "app.registry").Str("session", string(rec.Session)).Msg("closing slow observer")
		r.dropObserver(rec.Session, id)
	}
}
