// Package engine is the session controller: it tracks call and conference
// state, dispatches events to scenario handlers and keeps the media route
// graph of one session.
//
// Everything in a Session runs on a single logical thread. Hosts either call
// Run in its own goroutine and talk to the session through Post/Exec, or drive
// it manually from one goroutine with Drain.
package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/app/media"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

const defaultMailboxSize = 256

// ErrSessionClosed is returned by Post and Exec once the session has terminated.
var ErrSessionClosed = domain.NewError(domain.KindInvalidState, "session", "session is terminated")

// Trace describes one dispatched event. Hosts use it to stream session activity.
type Trace struct {
	Session domain.SessionID
	Bus     string
	Kind    event.Kind
	At      time.Time
	Event   event.Event
}

type Options struct {
	ID          domain.SessionID
	Clock       clockwork.Clock
	Signaling   core.Signaling
	MailboxSize int
	// MaxDuration terminates the session after this long. Zero disables it.
	MaxDuration time.Duration
	// Trace is called on the session thread for every dispatched event and must not block.
	Trace func(Trace)
}

// unit is what the session needs from every media unit it owns.
type unit interface {
	core.MediaUnit
	// teardown destroys the unit. Silent teardown fires no events.
	teardown(silent bool)
}

type Session struct {
	id        domain.SessionID
	clock     clockwork.Clock
	signaling core.Signaling
	trace     func(Trace)
	log       zerolog.Logger

	state      domain.SessionState
	trigger    domain.TriggerKind
	createdAt  time.Time
	customData string
	cause      string
	failed     bool

	bus         *event.Bus
	router      *media.Router
	units       map[domain.UnitID]unit
	unitOrder   []domain.UnitID
	calls       map[domain.CallID]*Call
	callOrder   []domain.CallID
	conferences *directory
	hadUnits    bool

	mailbox  chan func()
	local    []func()
	inStep   bool
	done     chan struct{}
	closed   bool
	limiter  clockwork.Timer
	duration time.Duration
}

func New(opts Options) *Session {
	if opts.ID == "" {
		opts.ID = domain.NewSessionID()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Signaling == nil {
		opts.Signaling = core.NopSignaling{}
	}
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = defaultMailboxSize
	}
	s := &Session{
		id:          opts.ID,
		clock:       opts.Clock,
		signaling:   opts.Signaling,
		trace:       opts.Trace,
		log:         log.With().Str("session", string(opts.ID)).Logger(),
		state:       domain.SessionStarting,
		createdAt:   opts.Clock.Now(),
		router:      media.NewRouter(),
		units:       make(map[domain.UnitID]unit),
		calls:       make(map[domain.CallID]*Call),
		conferences: newDirectory(),
		mailbox:     make(chan func(), opts.MailboxSize),
		done:        make(chan struct{}),
		duration:    opts.MaxDuration,
	}
	s.bus = s.newBus("session", event.AppKinds)
	return s
}

func (s *Session) ID() domain.SessionID        { return s.id }
func (s *Session) State() domain.SessionState  { return s.state }
func (s *Session) Trigger() domain.TriggerKind { return s.trigger }
func (s *Session) Events() *event.Bus          { return s.bus }
func (s *Session) Done() <-chan struct{}       { return s.done }
func (s *Session) Routes() []media.Route       { return s.router.Routes() }
func (s *Session) Logger() *zerolog.Logger     { return &s.log }
func (s *Session) Clock() clockwork.Clock      { return s.clock }
func (s *Session) Signaling() core.Signaling   { return s.signaling }
func (s *Session) Cause() (string, bool)       { return s.cause, s.failed }
func (s *Session) ActiveUnits() int            { return len(s.units) }
func (s *Session) Call(id domain.CallID) *Call { return s.calls[id] }
func (s *Session) Unit(id domain.UnitID) core.MediaUnit {
	if u, ok := s.units[id]; ok {
		return u
	}
	return nil
}

// CustomData returns the session custom data.
func (s *Session) CustomData() string { return s.customData }

// SetCustomData replaces the session custom data. Input over 200 bytes or
// not valid UTF-8 is rejected.
func (s *Session) SetCustomData(data string) error {
	if err := domain.ValidateCustomData("customData", data); err != nil {
		return err
	}
	s.customData = data
	return nil
}

// Calls lists every call created in the session, live or not, in creation order.
func (s *Session) Calls() []*Call {
	out := make([]*Call, 0, len(s.callOrder))
	for _, id := range s.callOrder {
		out = append(out, s.calls[id])
	}
	return out
}

func (s *Session) newBus(name string, kinds []event.Kind) *event.Bus {
	return event.NewBus(name, kinds,
		event.WithFault(s.fault),
		event.WithTrace(s.emitTrace),
	)
}

func (s *Session) emitTrace(bus string, ev event.Event) {
	s.log.Debug().Str("module", "engine.session").Str("bus", bus).Str("event", ev.Kind().String()).Msg("dispatch")
	if s.trace == nil {
		return
	}
	s.trace(Trace{Session: s.id, Bus: bus, Kind: ev.Kind(), At: s.clock.Now(), Event: ev})
}

// fault is the single place handler failures arrive. Any failure ends the
// scenario: remaining handlers of that dispatch are already skipped by the bus.
func (s *Session) fault(herr *event.HandlerError) {
	s.log.Error().Err(herr.Err).Str("module", "engine.session").Str("bus", herr.Bus).Str("event", herr.Kind.String()).Msg("handler failed, terminating session")
	s.terminate(fmt.Sprintf("handler failure in %s: %v", herr.Kind, herr.Err), true)
}

func (s *Session) requireActive(op string) error {
	if s.state == domain.SessionStarting || s.state == domain.SessionRunning {
		return nil
	}
	return domain.NewError(domain.KindInvalidState, op, "session is %s", s.state)
}

// StartHTTP moves the session to Running and fires Started then HttpRequest.
func (s *Session) StartHTTP(req HTTPRequest) error {
	if err := s.begin(domain.TriggerHTTPRequest); err != nil {
		return err
	}
	if s.state != domain.SessionRunning {
		return nil
	}
	req.Session = s
	_ = s.bus.Dispatch(&req)
	return nil
}

// Alert describes an inbound PSTN/SIP call that starts a session.
type Alert struct {
	From        string
	To          string
	DisplayName string
	Headers     map[string]string
	CallID      domain.CallID
}

// StartInbound creates the inbound call in Alerting state and fires Started then CallAlerting.
func (s *Session) StartInbound(a Alert) (*Call, error) {
	if s.state != domain.SessionStarting {
		return nil, domain.NewError(domain.KindInvalidState, "start", "session is %s", s.state)
	}
	c := s.newCall(callSpec{
		id:          a.CallID,
		kind:        domain.CallKindInbound,
		dir:         domain.Inbound,
		to:          a.To,
		callerID:    a.From,
		displayName: a.DisplayName,
		headers:     a.Headers,
	})
	if err := s.begin(domain.TriggerCallAlerting); err != nil {
		return nil, err
	}
	if s.state != domain.SessionRunning {
		return c, nil
	}
	_ = s.bus.Dispatch(&CallAlerting{
		Session:     s,
		Call:        c,
		From:        a.From,
		To:          a.To,
		DisplayName: a.DisplayName,
		Headers:     a.Headers,
	})
	return c, nil
}

func (s *Session) begin(trigger domain.TriggerKind) error {
	if s.state != domain.SessionStarting {
		return domain.NewError(domain.KindInvalidState, "start", "session is %s", s.state)
	}
	s.trigger = trigger
	s.state = domain.SessionRunning
	if s.duration > 0 {
		s.limiter = s.clock.AfterFunc(s.duration, func() {
			_ = s.Post(func() { s.terminate("session time limit reached", false) })
		})
	}
	s.log.Info().Str("module", "engine.session").Str("trigger", trigger.String()).Msg("session started")
	_ = s.bus.Dispatch(&Started{Session: s, Trigger: trigger.String()})
	return nil
}

// Terminate ends the session: Terminating fires, every live unit is
// disconnected without its own terminal event, then Terminated fires.
// Calling it again is a no-op.
func (s *Session) Terminate() {
	s.terminate("terminated by scenario", false)
}

func (s *Session) terminate(cause string, failed bool) {
	if s.state == domain.SessionTerminating || s.state == domain.SessionTerminated {
		return
	}
	s.state = domain.SessionTerminating
	s.cause = cause
	s.failed = failed
	s.log.Info().Str("module", "engine.session").Str("cause", cause).Bool("failed", failed).Msg("session terminating")

	_ = s.bus.Dispatch(&Terminating{Session: s, Cause: cause})

	// newest first, so endpoints and bridged calls go before what they hang off
	order := slices.Clone(s.unitOrder)
	for i := len(order) - 1; i >= 0; i-- {
		if u, ok := s.units[order[i]]; ok {
			u.teardown(true)
		}
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.local = nil

	s.state = domain.SessionTerminated
	_ = s.bus.Dispatch(&Terminated{Session: s, Cause: s.cause, Failed: s.failed})
	s.bus.Seal()
	s.log.Info().Str("module", "engine.session").Msg("session terminated")
	if !s.inStep {
		s.close()
	}
}

func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// adopt registers a live unit with the session.
func (s *Session) adopt(u unit) {
	s.units[u.UnitID()] = u
	s.unitOrder = append(s.unitOrder, u.UnitID())
	s.hadUnits = true
}

// release forgets a unit and prunes every route touching it. It runs before
// the unit's terminal event is dispatched.
func (s *Session) release(u unit) {
	id := u.UnitID()
	if _, ok := s.units[id]; !ok {
		return
	}
	delete(s.units, id)
	for i, uid := range s.unitOrder {
		if uid == id {
			s.unitOrder = append(s.unitOrder[:i], s.unitOrder[i+1:]...)
			break
		}
	}
	for _, rt := range s.router.Prune(id) {
		s.notifyRoute(rt.Source, rt.Target, false)
	}
}

// later schedules fn on the session thread after the current step.
func (s *Session) later(fn func()) {
	s.local = append(s.local, fn)
}

// Post queues fn to run on the session thread. It blocks while the mailbox is
// full and fails once the session has terminated.
func (s *Session) Post(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.mailbox <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Exec runs fn on the session thread and waits for its result.
func (s *Session) Exec(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	if err := s.Post(func() { res <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		// done closes after the step that ran fn, so a result is already there if fn ran
		select {
		case err := <-res:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// Run processes the mailbox until the session terminates. Cancelling ctx
// terminates the session.
func (s *Session) Run(ctx context.Context) {
	s.step(nil)
	for !s.closed {
		select {
		case fn := <-s.mailbox:
			s.step(fn)
		case <-ctx.Done():
			s.step(func() { s.terminate("host shutdown", false) })
		}
	}
	s.log.Debug().Str("module", "engine.session").Msg("session loop exited")
}

// Drain runs everything queued so far on the calling goroutine and returns
// how many mailbox items ran. Only for hosts that do not call Run.
func (s *Session) Drain() int {
	n := 0
	s.step(nil)
	for !s.closed {
		select {
		case fn := <-s.mailbox:
			s.step(fn)
			n++
		default:
			return n
		}
	}
	return n
}

func (s *Session) step(fn func()) {
	s.inStep = true
	if fn != nil && s.state != domain.SessionTerminated {
		fn()
	}
	for len(s.local) > 0 && s.state != domain.SessionTerminated {
		next := s.local[0]
		s.local = s.local[1:]
		next()
	}
	s.checkIdle()
	s.inStep = false
	if s.state == domain.SessionTerminated {
		s.close()
	}
}

// checkIdle ends a running session once every unit it ever had is gone.
func (s *Session) checkIdle() {
	if s.state == domain.SessionRunning && s.hadUnits && len(s.units) == 0 {
		s.terminate("no active media units", false)
	}
}

func (s *Session) notifyRoute(src, dst domain.UnitID, active bool) {
	err := s.signaling.Route(core.RouteChange{Session: s.id, Source: src, Target: dst, Active: active})
	if err != nil {
		s.log.Warn().Err(err).Str("module", "engine.routing").Str("source", string(src)).Str("target", string(dst)).Msg("route change not delivered")
	}
}
