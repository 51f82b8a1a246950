package engine

import (
	"maps"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

// Call is one telephony leg.
type Call struct {
	s      *Session
	id     domain.CallID
	unitID domain.UnitID
	log    zerolog.Logger

	kind        domain.CallKind
	dir         domain.Direction
	state       domain.CallState
	p2p         bool
	video       bool
	to          string
	callerID    string
	displayName string
	headers     map[string]string
	customData  string

	bus      *event.Bus
	deadline clockwork.Timer
	expired  bool
	// onEnd runs after the terminal event, e.g. to drop conference endpoints bound to this call
	onEnd []func()
}

type callSpec struct {
	id          domain.CallID
	kind        domain.CallKind
	dir         domain.Direction
	to          string
	callerID    string
	displayName string
	headers     map[string]string
	video       bool
	p2p         bool
}

func (s *Session) newCall(spec callSpec) *Call {
	if spec.id == "" {
		spec.id = domain.NewCallID()
	}
	c := &Call{
		s:           s,
		id:          spec.id,
		unitID:      domain.NewUnitID(),
		kind:        spec.kind,
		dir:         spec.dir,
		state:       domain.CallAlerting,
		p2p:         spec.p2p,
		video:       spec.video,
		to:          spec.to,
		callerID:    spec.callerID,
		displayName: spec.displayName,
		headers:     maps.Clone(spec.headers),
	}
	c.log = s.log.With().Str("call", string(c.id)).Logger()
	c.bus = s.newBus("call:"+string(c.id), event.CallKinds)
	s.calls[c.id] = c
	s.callOrder = append(s.callOrder, c.id)
	s.adopt(c)
	c.log.Info().Str("module", "engine.call").Str("kind", string(c.kind)).Str("direction", c.dir.String()).Str("to", c.to).Msg("call created")
	return c
}

func (c *Call) ID() domain.CallID           { return c.id }
func (c *Call) UnitID() domain.UnitID       { return c.unitID }
func (c *Call) UnitKind() domain.UnitKind   { return domain.UnitCall }
func (c *Call) SessionID() domain.SessionID { return c.s.id }
func (c *Call) Session() *Session           { return c.s }
func (c *Call) Events() *event.Bus          { return c.bus }
func (c *Call) State() domain.CallState     { return c.state }
func (c *Call) Direction() domain.Direction { return c.dir }
func (c *Call) Kind() domain.CallKind       { return c.kind }
func (c *Call) IsP2P() bool                 { return c.p2p }
func (c *Call) Video() bool                 { return c.video }
func (c *Call) To() string                  { return c.to }
func (c *Call) CallerID() string            { return c.callerID }
func (c *Call) DisplayName() string         { return c.displayName }
func (c *Call) Headers() map[string]string  { return maps.Clone(c.headers) }
func (c *Call) CustomData() string          { return c.customData }
func (c *Call) Live() bool                  { return !c.state.IsTerminal() }

// SetCustomData stores call-scoped custom data, limited to 200 bytes.
func (c *Call) SetCustomData(data string) error {
	if err := domain.ValidateCustomData("call.customData", data); err != nil {
		return err
	}
	c.customData = data
	return nil
}

func (c *Call) requireLive(op string) error {
	if c.state.IsTerminal() {
		return domain.NewError(domain.KindInvalidState, op, "call %s is %s", c.id, c.state)
	}
	return nil
}

func (c *Call) requireMedia(op string) error {
	if err := c.requireLive(op); err != nil {
		return err
	}
	if c.p2p {
		return domain.NewError(domain.KindCapability, op, "call %s is in P2P mode", c.id)
	}
	return nil
}

func (c *Call) command(cmd core.CallCommand) {
	cmd.Session = c.s.id
	cmd.Call = c.id
	if err := c.s.signaling.Command(cmd); err != nil {
		c.log.Warn().Err(err).Str("module", "engine.call").Str("op", string(cmd.Op)).Msg("command not delivered")
	}
}

// Answer accepts an inbound alerting call.
func (c *Call) Answer(headers map[string]string) error {
	if c.dir != domain.Inbound {
		return domain.NewError(domain.KindInvalidState, "answer", "call %s is outbound", c.id)
	}
	if c.state != domain.CallAlerting {
		return domain.NewError(domain.KindInvalidState, "answer", "call %s is %s", c.id, c.state)
	}
	c.command(core.CallCommand{Op: core.OpAnswer, Headers: headers})
	c.connected(headers)
	return nil
}

// Reject declines an inbound alerting call with a SIP status code.
func (c *Call) Reject(code int, headers map[string]string) error {
	if c.dir != domain.Inbound || c.state != domain.CallAlerting {
		return domain.NewError(domain.KindInvalidState, "reject", "call %s cannot be rejected while %s", c.id, c.state)
	}
	c.command(core.CallCommand{Op: core.OpReject, Code: code, Headers: headers})
	c.disconnect("rejected", headers)
	return nil
}

// Hangup ends the call from Alerting or Connected and fires Disconnected.
func (c *Call) Hangup(headers map[string]string) error {
	if err := c.requireLive("hangup"); err != nil {
		return err
	}
	c.command(core.CallCommand{Op: core.OpHangup, Headers: headers})
	c.disconnect("hangup", headers)
	return nil
}

// Say asks the media layer to synthesize text into the call.
func (c *Call) Say(text string) error {
	if err := c.requireMedia("say"); err != nil {
		return err
	}
	c.command(core.CallCommand{Op: core.OpSay, Text: text})
	return nil
}

func (c *Call) SendDigits(digits string) error {
	if err := c.requireMedia("sendDigits"); err != nil {
		return err
	}
	if digits == "" {
		return domain.NewError(domain.KindValidation, "sendDigits", "no digits")
	}
	c.command(core.CallCommand{Op: core.OpDigits, Text: digits})
	return nil
}

func (c *Call) SendMediaTo(target core.MediaUnit) error {
	if err := c.requireMedia("sendMediaTo"); err != nil {
		return err
	}
	return c.s.connect("sendMediaTo", c, target)
}

func (c *Call) StopMediaTo(target core.MediaUnit) error {
	if err := c.requireMedia("stopMediaTo"); err != nil {
		return err
	}
	return c.s.disconnect("stopMediaTo", c, target)
}

func (c *Call) armDeadline() {
	c.deadline = c.s.clock.AfterFunc(domain.CallSetupTimeout, func() {
		_ = c.s.Post(c.onDeadline)
	})
}

func (c *Call) stopDeadline() {
	if c.deadline != nil {
		c.deadline.Stop()
		c.deadline = nil
	}
}

// onDeadline runs on the session thread. A timer that fires after the call
// left Alerting does nothing.
func (c *Call) onDeadline() {
	if c.expired || c.state != domain.CallAlerting {
		return
	}
	c.expired = true
	c.log.Warn().Str("module", "engine.call").Dur("timeout", domain.CallSetupTimeout).Msg("call setup deadline expired")
	err := domain.NewError(domain.KindTimeout, "call", "call %s not connected within %s", c.id, domain.CallSetupTimeout)
	c.command(core.CallCommand{Op: core.OpHangup})
	c.fail(domain.CodeTimeout, "Request Timeout", err)
}

func (c *Call) connected(headers map[string]string) {
	if err := c.transition("connected", domain.CallConnected); err != nil {
		c.log.Debug().Err(err).Str("module", "engine.call").Msg("answer ignored")
		return
	}
	c.stopDeadline()
	_ = c.bus.Dispatch(&CallConnected{Call: c, Headers: headers})
}

func (c *Call) disconnect(cause string, headers map[string]string) {
	if err := c.transition("disconnected", domain.CallDisconnected); err != nil {
		c.log.Debug().Err(err).Str("module", "engine.call").Msg("disconnect ignored")
		return
	}
	c.finish(&CallDisconnected{Call: c, Cause: cause, Headers: headers})
}

func (c *Call) fail(code int, reason string, err error) {
	if terr := c.transition("failed", domain.CallFailed); terr != nil {
		c.log.Debug().Err(terr).Str("module", "engine.call").Msg("failure ignored")
		return
	}
	c.finish(&CallFailed{Call: c, Code: code, Reason: reason, Err: err})
}

// finish runs after the state already moved to a terminal one: routes go
// first, then the terminal event, then the bus is sealed.
func (c *Call) finish(ev event.Event) {
	c.stopDeadline()
	c.s.release(c)
	_ = c.bus.Dispatch(ev)
	c.bus.Seal()
	hooks := c.onEnd
	c.onEnd = nil
	for _, h := range hooks {
		h()
	}
}

func (c *Call) teardown(silent bool) {
	if c.state.IsTerminal() {
		return
	}
	if !silent {
		c.command(core.CallCommand{Op: core.OpHangup})
		c.disconnect("teardown", nil)
		return
	}
	c.command(core.CallCommand{Op: core.OpHangup})
	c.state = domain.CallDisconnected
	c.stopDeadline()
	c.s.release(c)
	c.bus.Seal()
	c.onEnd = nil
}

// handle applies one signaling notification addressed to this call.
// Notifications for a call that already ended are dropped.
func (c *Call) handle(n core.Notification) {
	if c.state.IsTerminal() {
		c.log.Debug().Str("module", "engine.call").Str("type", string(n.Type)).Msg("notification for ended call dropped")
		return
	}
	switch n.Type {
	case core.NotifyAnswered:
		c.connected(n.Headers)
	case core.NotifyDisconnected:
		cause := n.Reason
		if cause == "" {
			cause = "remote hangup"
		}
		c.disconnect(cause, n.Headers)
	case core.NotifyFailed:
		c.fail(n.Code, n.Reason, nil)
	case core.NotifyPlaybackFinished:
		_ = c.bus.Dispatch(&CallPlaybackFinished{Call: c})
	case core.NotifyTone:
		_ = c.bus.Dispatch(&CallToneReceived{Call: c, Tone: n.Tone})
	}
}
