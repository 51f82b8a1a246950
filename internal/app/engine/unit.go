package engine

import (
	"maps"

	"github.com/rs/zerolog"

	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

// Unit is an auxiliary media unit (ASR, Player, IVR, Recorder). The media
// work itself happens in the external layer; the session only tracks the
// unit's routes and relays its events.
type Unit struct {
	s      *Session
	id     domain.UnitID
	kind   domain.UnitKind
	params map[string]string
	live   bool
	log    zerolog.Logger
	bus    *event.Bus
}

func (s *Session) createUnit(kind domain.UnitKind, params map[string]string) (*Unit, error) {
	op := "create" + string(kind)
	if err := s.requireActive(op); err != nil {
		return nil, err
	}
	u := &Unit{
		s:      s,
		id:     domain.NewUnitID(),
		kind:   kind,
		params: maps.Clone(params),
		live:   true,
	}
	u.log = s.log.With().Str("unit", string(u.id)).Str("kind", string(kind)).Logger()
	u.bus = s.newBus(string(kind)+":"+string(u.id), event.UnitKinds)
	s.adopt(u)
	if err := s.signaling.Unit(core.UnitCommand{Session: s.id, Unit: u.id, Kind: kind, Op: core.UnitCreate, Params: u.params}); err != nil {
		u.log.Warn().Err(err).Str("module", "engine.unit").Msg("unit create not delivered")
	}
	u.log.Info().Str("module", "engine.unit").Msg("unit created")
	return u, nil
}

// CreatePlayer creates a player for a media url. Routing it to a call
// plays the media there.
func (s *Session) CreatePlayer(url string, loop bool) (*Unit, error) {
	if url == "" {
		return nil, domain.NewError(domain.KindValidation, "createPlayer", "empty media url")
	}
	params := map[string]string{"url": url}
	if loop {
		params["loop"] = "true"
	}
	return s.createUnit(domain.UnitPlayer, params)
}

// CreateASR creates a speech recognizer. Route a call to it to feed audio.
func (s *Session) CreateASR(profile string) (*Unit, error) {
	return s.createUnit(domain.UnitASR, map[string]string{"profile": profile})
}

func (s *Session) CreateIVR(params map[string]string) (*Unit, error) {
	return s.createUnit(domain.UnitIVR, params)
}

func (s *Session) CreateRecorder(params map[string]string) (*Unit, error) {
	return s.createUnit(domain.UnitRecorder, params)
}

func (u *Unit) UnitID() domain.UnitID       { return u.id }
func (u *Unit) UnitKind() domain.UnitKind   { return u.kind }
func (u *Unit) SessionID() domain.SessionID { return u.s.id }
func (u *Unit) Events() *event.Bus          { return u.bus }
func (u *Unit) Live() bool                  { return u.live }
func (u *Unit) Params() map[string]string   { return maps.Clone(u.params) }

func (u *Unit) requireLive(op string) error {
	if !u.live {
		return domain.NewError(domain.KindInvalidState, op, "%s %s is stopped", u.kind, u.id)
	}
	return nil
}

func (u *Unit) SendMediaTo(target core.MediaUnit) error {
	if err := u.requireLive("sendMediaTo"); err != nil {
		return err
	}
	return u.s.connect("sendMediaTo", u, target)
}

func (u *Unit) StopMediaTo(target core.MediaUnit) error {
	if err := u.requireLive("stopMediaTo"); err != nil {
		return err
	}
	return u.s.disconnect("stopMediaTo", u, target)
}

// Stop destroys the unit: its routes are pruned, then Stopped fires.
func (u *Unit) Stop() error {
	if err := u.requireLive("stop"); err != nil {
		return err
	}
	u.command(core.UnitStop)
	u.finish()
	return nil
}

func (u *Unit) command(op core.UnitOp) {
	if err := u.s.signaling.Unit(core.UnitCommand{Session: u.s.id, Unit: u.id, Kind: u.kind, Op: op}); err != nil {
		u.log.Warn().Err(err).Str("module", "engine.unit").Str("op", string(op)).Msg("unit command not delivered")
	}
}

func (u *Unit) finish() {
	u.live = false
	u.s.release(u)
	_ = u.bus.Dispatch(&UnitStopped{Unit: u})
	u.bus.Seal()
	u.log.Info().Str("module", "engine.unit").Msg("unit stopped")
}

func (u *Unit) teardown(silent bool) {
	if !u.live {
		return
	}
	u.command(core.UnitStop)
	if !silent {
		u.finish()
		return
	}
	u.live = false
	u.s.release(u)
	u.bus.Seal()
}

func (u *Unit) handle(n core.Notification) {
	if !u.live {
		return
	}
	switch n.Type {
	case core.NotifyPlaybackFinished:
		_ = u.bus.Dispatch(&PlaybackFinished{Unit: u})
	case core.NotifyUnitResult:
		_ = u.bus.Dispatch(&UnitResult{Unit: u, Name: n.Name, Data: n.Data})
	case core.NotifyDisconnected, core.NotifyFailed:
		// the media layer dropped the unit on its own
		u.finish()
	}
}
