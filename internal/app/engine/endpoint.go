package engine

import (
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

// EndpointOptions configure Conference.Add. When Call is set the endpoint is
// bound to it and media is routed between them according to Direction.
type EndpointOptions struct {
	DisplayName string
	Direction   domain.MediaDirection
	Call        *Call
}

// Endpoint is a participant slot of a video-enabled conference. It is owned
// by its conference and dies with it.
type Endpoint struct {
	conf        *Conference
	id          domain.EndpointID
	unitID      domain.UnitID
	displayName string
	direction   domain.MediaDirection
	call        *Call
	live        bool
}

func (e *Endpoint) ID() domain.EndpointID            { return e.id }
func (e *Endpoint) UnitID() domain.UnitID            { return e.unitID }
func (e *Endpoint) UnitKind() domain.UnitKind        { return domain.UnitEndpoint }
func (e *Endpoint) SessionID() domain.SessionID      { return e.conf.s.id }
func (e *Endpoint) Conference() *Conference          { return e.conf }
func (e *Endpoint) DisplayName() string              { return e.displayName }
func (e *Endpoint) Direction() domain.MediaDirection { return e.direction }
func (e *Endpoint) Call() *Call                      { return e.call }
func (e *Endpoint) Live() bool                       { return e.live }

func (e *Endpoint) SendMediaTo(target core.MediaUnit) error {
	return e.conf.s.connect("endpoint.sendMediaTo", e, target)
}

func (e *Endpoint) StopMediaTo(target core.MediaUnit) error {
	return e.conf.s.disconnect("endpoint.stopMediaTo", e, target)
}

// bind routes media between the endpoint and its call.
func (e *Endpoint) bind() error {
	if e.call == nil {
		return nil
	}
	s := e.conf.s
	if e.direction != domain.DirectionReceive {
		if err := s.connect("conference.add", e.call, e); err != nil {
			return err
		}
	}
	if e.direction != domain.DirectionSend {
		if err := s.connect("conference.add", e, e.call); err != nil {
			return err
		}
	}
	return nil
}

func (e *Endpoint) teardown(bool) {
	if !e.live {
		return
	}
	e.live = false
	e.conf.s.release(e)
	e.conf.forget(e.id)
}
