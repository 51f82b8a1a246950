package engine

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

type conferenceState int

const (
	conferenceRunning conferenceState = iota
	conferenceStopping
	conferenceStopped
)

// Conference is a named mixing point holding up to MaxEndpoints endpoints.
type Conference struct {
	s       *Session
	id      domain.ConferenceID
	unitID  domain.UnitID
	name    string
	hdAudio bool
	variant domain.ConferenceVariant
	state   conferenceState
	log     zerolog.Logger
	bus     *event.Bus

	endpoints map[domain.EndpointID]*Endpoint
	order     []domain.EndpointID
}

// CreateConference creates a conference in the session. Started fires once
// the current step has finished, so handlers registered right after the call
// still see it. Names are unique among live conferences.
func (s *Session) CreateConference(params domain.ConferenceParameters) (*Conference, error) {
	if err := s.requireActive("createConference"); err != nil {
		return nil, err
	}
	if params.Name != "" {
		if _, ok := s.conferences.named(params.Name); ok {
			return nil, domain.NewError(domain.KindValidation, "createConference", "conference %q already exists", params.Name)
		}
	}
	c := &Conference{
		s:         s,
		id:        domain.NewConferenceID(),
		unitID:    domain.NewUnitID(),
		name:      params.Name,
		hdAudio:   params.HDAudio,
		variant:   params.Variant,
		endpoints: make(map[domain.EndpointID]*Endpoint),
	}
	c.log = s.log.With().Str("conference", string(c.id)).Logger()
	c.bus = s.newBus("conference:"+string(c.id), event.ConferenceKinds)
	s.conferences.add(c)
	s.adopt(c)
	c.log.Info().Str("module", "engine.conference").Str("name", c.name).Str("variant", c.variant.String()).Bool("hd_audio", c.hdAudio).Msg("conference created")
	s.later(func() {
		if c.state == conferenceRunning {
			_ = c.bus.Dispatch(&ConferenceStarted{Conference: c})
		}
	})
	return c, nil
}

// Conference returns a live conference by id.
func (s *Session) Conference(id domain.ConferenceID) *Conference {
	c, _ := s.conferences.get(id)
	return c
}

func (s *Session) Conferences() []ConferenceInfo { return s.conferences.list() }

func (c *Conference) ID() domain.ConferenceID           { return c.id }
func (c *Conference) UnitID() domain.UnitID             { return c.unitID }
func (c *Conference) UnitKind() domain.UnitKind         { return domain.UnitConference }
func (c *Conference) SessionID() domain.SessionID       { return c.s.id }
func (c *Conference) Name() string                      { return c.name }
func (c *Conference) HDAudio() bool                     { return c.hdAudio }
func (c *Conference) Variant() domain.ConferenceVariant { return c.variant }
func (c *Conference) Events() *event.Bus                { return c.bus }
func (c *Conference) Live() bool                        { return c.state != conferenceStopped }
func (c *Conference) Size() int                         { return len(c.order) }

func (c *Conference) requireRunning(op string) error {
	if c.state != conferenceRunning {
		return domain.NewError(domain.KindInvalidState, op, "conference %s is stopped", c.id)
	}
	return nil
}

// Add creates an endpoint. Standalone conferences reject it with code 102
// and fire ConferenceError; a full conference rejects it with CapacityError.
// The endpoint set is unchanged on every failure.
func (c *Conference) Add(opts EndpointOptions) (*Endpoint, error) {
	const op = "conference.add"
	if err := c.requireRunning(op); err != nil {
		return nil, err
	}
	if c.variant != domain.VideoEnabled {
		err := domain.NewError(domain.KindUnsupported, op, "endpoints need a video-enabled conference")
		err.Code = domain.CodeUnsupportedConference
		_ = c.bus.Dispatch(&ConferenceError{Conference: c, Code: err.Code, Message: err.Msg})
		return nil, err
	}
	if len(c.order) >= domain.MaxEndpoints {
		return nil, domain.NewError(domain.KindCapacity, op, "conference %s already has %d endpoints", c.id, domain.MaxEndpoints)
	}
	if call := opts.Call; call != nil {
		if call.s != c.s || !call.Live() {
			return nil, domain.NewError(domain.KindInvalidTarget, op, "call %s is not a live call of this session", call.id)
		}
		if call.p2p {
			return nil, domain.NewError(domain.KindCapability, op, "call %s is in P2P mode", call.id)
		}
	}

	e := &Endpoint{
		conf:        c,
		id:          domain.NewEndpointID(),
		unitID:      domain.NewUnitID(),
		displayName: opts.DisplayName,
		direction:   opts.Direction,
		call:        opts.Call,
		live:        true,
	}
	c.endpoints[e.id] = e
	c.order = append(c.order, e.id)
	c.s.adopt(e)
	if err := e.bind(); err != nil {
		e.teardown(true)
		return nil, err
	}
	if e.call != nil {
		e.call.onEnd = append(e.call.onEnd, func() {
			if e.live && c.state == conferenceRunning {
				c.removeEndpoint(e, "participant left")
			}
		})
	}
	c.log.Info().Str("module", "engine.conference").Str("endpoint", string(e.id)).Int("size", len(c.order)).Msg("endpoint added")
	_ = c.bus.Dispatch(&EndpointAdded{Conference: c, Endpoint: e})
	return e, nil
}

// Get returns a live endpoint by id.
func (c *Conference) Get(id domain.EndpointID) (*Endpoint, error) {
	if err := c.requireRunning("conference.get"); err != nil {
		return nil, err
	}
	e, ok := c.endpoints[id]
	if !ok {
		return nil, domain.NewError(domain.KindInvalidTarget, "conference.get", "endpoint %s not found", id)
	}
	return e, nil
}

// List returns the endpoints in the order they were added.
func (c *Conference) List() ([]*Endpoint, error) {
	if err := c.requireRunning("conference.getList"); err != nil {
		return nil, err
	}
	return c.members(), nil
}

func (c *Conference) members() []*Endpoint {
	out := make([]*Endpoint, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.endpoints[id])
	}
	return out
}

// Remove drops one endpoint, firing EndpointRemoved before it is destroyed.
func (c *Conference) Remove(id domain.EndpointID) error {
	if err := c.requireRunning("conference.remove"); err != nil {
		return err
	}
	e, ok := c.endpoints[id]
	if !ok {
		return domain.NewError(domain.KindInvalidState, "conference.remove", "endpoint %s not found", id)
	}
	c.removeEndpoint(e, "removed")
	return nil
}

func (c *Conference) removeEndpoint(e *Endpoint, reason string) {
	_ = c.bus.Dispatch(&EndpointRemoved{Conference: c, Endpoint: e, Reason: reason})
	e.teardown(false)
	c.log.Info().Str("module", "engine.conference").Str("endpoint", string(e.id)).Str("reason", reason).Msg("endpoint removed")
}

func (c *Conference) forget(id domain.EndpointID) {
	delete(c.endpoints, id)
	c.order = slices.DeleteFunc(c.order, func(x domain.EndpointID) bool { return x == id })
}

// Stop removes every endpoint (EndpointRemoved, then destroy, one by one),
// prunes the conference's own routes, fires Stopped and seals the bus.
// Any call on the conference afterwards fails with InvalidStateError.
func (c *Conference) Stop() error {
	if err := c.requireRunning("conference.stop"); err != nil {
		return err
	}
	c.state = conferenceStopping
	for _, e := range c.members() {
		if c.state == conferenceStopped {
			// a handler failed and the session tore everything down
			return nil
		}
		c.removeEndpoint(e, "conference stopped")
	}
	if c.state == conferenceStopped {
		return nil
	}
	c.state = conferenceStopped
	c.s.release(c)
	c.s.conferences.remove(c.id)
	_ = c.bus.Dispatch(&ConferenceStopped{Conference: c})
	c.bus.Seal()
	c.log.Info().Str("module", "engine.conference").Msg("conference stopped")
	return nil
}

func (c *Conference) SendMediaTo(target core.MediaUnit) error {
	if err := c.requireRunning("conference.sendMediaTo"); err != nil {
		return err
	}
	return c.s.connect("conference.sendMediaTo", c, target)
}

func (c *Conference) StopMediaTo(target core.MediaUnit) error {
	if err := c.requireRunning("conference.stopMediaTo"); err != nil {
		return err
	}
	return c.s.disconnect("conference.stopMediaTo", c, target)
}

func (c *Conference) teardown(silent bool) {
	if c.state == conferenceStopped {
		return
	}
	if !silent {
		_ = c.Stop()
		return
	}
	for _, e := range c.members() {
		e.teardown(true)
	}
	c.state = conferenceStopped
	c.s.release(c)
	c.s.conferences.remove(c.id)
	c.bus.Seal()
}
