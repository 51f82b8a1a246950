package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/app"
	"github.com/dkeye/voxengine/internal/app/engine"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
	"github.com/dkeye/voxengine/internal/scenario"
)

type Settings struct {
	MailboxSize     int
	MaxDuration     time.Duration
	DefaultScenario string
	ObserverBuffer  int
}

// Orchestrator turns triggers into running sessions and routes everything
// the outside world sends to the right session thread.
type Orchestrator struct {
	Registry  *app.Registry
	Scenarios *scenario.Catalog
	Signaling core.Signaling
	Clock     clockwork.Clock
	Settings  Settings

	base context.Context
}

func New(ctx context.Context, reg *app.Registry, catalog *scenario.Catalog, sig core.Signaling, settings Settings) *Orchestrator {
	return &Orchestrator{
		Registry:  reg,
		Scenarios: catalog,
		Signaling: sig,
		Clock:     clockwork.NewRealClock(),
		Settings:  settings,
		base:      ctx,
	}
}

// HTTPTrigger starts a session from an HTTP request.
type HTTPTrigger struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    string
	Params  scenario.Params
}

// AlertTrigger starts a session from an inbound call.
type AlertTrigger struct {
	CallID      domain.CallID
	From        string
	To          string
	DisplayName string
	Headers     map[string]string
	Params      scenario.Params
}

func (o *Orchestrator) StartHTTP(ctx context.Context, name string, trig HTTPTrigger) (domain.SessionID, error) {
	s, sc, err := o.spawn(name)
	if err != nil {
		return "", err
	}
	err = s.Exec(ctx, func() error {
		if err := sc(s, trig.Params); err != nil {
			s.Terminate()
			return err
		}
		return s.StartHTTP(engine.HTTPRequest{
			Method:  trig.Method,
			Path:    trig.Path,
			Headers: trig.Headers,
			Body:    trig.Body,
		})
	})
	if err != nil {
		return "", err
	}
	return s.ID(), nil
}

func (o *Orchestrator) StartInbound(ctx context.Context, name string, trig AlertTrigger) (domain.SessionID, domain.CallID, error) {
	s, sc, err := o.spawn(name)
	if err != nil {
		return "", "", err
	}
	var callID domain.CallID
	err = s.Exec(ctx, func() error {
		if err := sc(s, trig.Params); err != nil {
			s.Terminate()
			return err
		}
		c, err := s.StartInbound(engine.Alert{
			CallID:      trig.CallID,
			From:        trig.From,
			To:          trig.To,
			DisplayName: trig.DisplayName,
			Headers:     trig.Headers,
		})
		if err != nil {
			return err
		}
		callID = c.ID()
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return s.ID(), callID, nil
}

// spawn creates a session, binds it and starts its loop. The loop unbinds
// the session once it has terminated.
func (o *Orchestrator) spawn(name string) (*engine.Session, scenario.Scenario, error) {
	if name == "" {
		name = o.Settings.DefaultScenario
	}
	sc, ok := o.Scenarios.Lookup(name)
	if !ok {
		return nil, nil, domain.NewError(domain.KindValidation, "start", "unknown scenario %q", name)
	}
	id := domain.NewSessionID()
	s := engine.New(engine.Options{
		ID:          id,
		Clock:       o.Clock,
		Signaling:   o.Signaling,
		MailboxSize: o.Settings.MailboxSize,
		MaxDuration: o.Settings.MaxDuration,
		Trace: func(tr engine.Trace) {
			o.Registry.Publish(app.Record{
				Session: tr.Session,
				Bus:     tr.Bus,
				Event:   tr.Kind.String(),
				At:      tr.At,
				Fields:  engine.Describe(tr.Event),
			})
		},
	})
	runCtx, cancel := context.WithCancel(o.base)
	o.Registry.Bind(s, name, cancel)
	go func() {
		defer cancel()
		s.Run(runCtx)
		cause, failed := s.Cause()
		log.Info().Str("module", "orch").Str("session", string(id)).Str("cause", cause).Bool("failed", failed).Msg("session finished")
		o.Registry.Unbind(id)
	}()
	return s, sc, nil
}

func (o *Orchestrator) session(sid domain.SessionID) (*engine.Session, error) {
	s, ok := o.Registry.Get(sid)
	if !ok {
		return nil, fmt.Errorf("%w: %s", app.ErrUnknownSession, sid)
	}
	return s, nil
}

// Notify delivers a signaling notification to its session as one event.
func (o *Orchestrator) Notify(ctx context.Context, sid domain.SessionID, n core.Notification) error {
	s, err := o.session(sid)
	if err != nil {
		return err
	}
	return s.Exec(ctx, func() error { return s.HandleNotification(n) })
}

func (o *Orchestrator) Terminate(ctx context.Context, sid domain.SessionID) error {
	s, err := o.session(sid)
	if err != nil {
		return err
	}
	err = s.Exec(ctx, func() error {
		s.Terminate()
		return nil
	})
	if errors.Is(err, engine.ErrSessionClosed) {
		return nil
	}
	return err
}

func (o *Orchestrator) Snapshot(ctx context.Context, sid domain.SessionID) (engine.Snapshot, error) {
	s, err := o.session(sid)
	if err != nil {
		return engine.Snapshot{}, err
	}
	var snap engine.Snapshot
	err = s.Exec(ctx, func() error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

func (o *Orchestrator) List() []app.SessionInfo { return o.Registry.List() }

func (o *Orchestrator) SetCustomData(ctx context.Context, sid domain.SessionID, data string) error {
	if err := domain.ValidateCustomData("customData", data); err != nil {
		return err
	}
	s, err := o.session(sid)
	if err != nil {
		return err
	}
	return s.Exec(ctx, func() error { return s.SetCustomData(data) })
}

// Observe streams the event records of a session until it ends or cancel is called.
func (o *Orchestrator) Observe(sid domain.SessionID) (<-chan app.Record, func(), error) {
	return o.Registry.Observe(sid, o.Settings.ObserverBuffer)
}

// Shutdown terminates every session and waits until they are gone or ctx expires.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.Registry.CancelAll()
	tick := o.Clock.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for o.Registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.Chan():
		}
	}
	return nil
}
