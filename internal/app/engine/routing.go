package engine

import (
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

// connect adds src -> target after checking both ends are live units of
// this session.
func (s *Session) connect(op string, src unit, target core.MediaUnit) error {
	if !src.Live() {
		return domain.NewError(domain.KindInvalidState, op, "%s %s is no longer live", src.UnitKind(), src.UnitID())
	}
	if target == nil {
		return domain.NewError(domain.KindInvalidTarget, op, "no target media unit")
	}
	if target.SessionID() != s.id {
		return domain.NewError(domain.KindInvalidTarget, op, "%s %s belongs to another session", target.UnitKind(), target.UnitID())
	}
	dst, ok := s.units[target.UnitID()]
	if !ok || !dst.Live() {
		return domain.NewError(domain.KindInvalidTarget, op, "%s %s is not live", target.UnitKind(), target.UnitID())
	}
	if dst.UnitID() == src.UnitID() {
		return domain.NewError(domain.KindInvalidTarget, op, "a unit cannot send media to itself")
	}
	if c, ok := dst.(*Call); ok && c.p2p {
		return domain.NewError(domain.KindCapability, op, "call %s is in P2P mode", c.id)
	}
	if s.router.Add(src.UnitID(), dst.UnitID()) {
		s.log.Debug().Str("module", "engine.routing").Str("source", string(src.UnitID())).Str("target", string(dst.UnitID())).Msg("route added")
		s.notifyRoute(src.UnitID(), dst.UnitID(), true)
	}
	return nil
}

// disconnect removes src -> target. A missing route is not an error.
func (s *Session) disconnect(op string, src unit, target core.MediaUnit) error {
	if !src.Live() {
		return domain.NewError(domain.KindInvalidState, op, "%s %s is no longer live", src.UnitKind(), src.UnitID())
	}
	if target == nil {
		return nil
	}
	if s.router.Remove(src.UnitID(), target.UnitID()) {
		s.log.Debug().Str("module", "engine.routing").Str("source", string(src.UnitID())).Str("target", string(target.UnitID())).Msg("route removed")
		s.notifyRoute(src.UnitID(), target.UnitID(), false)
	}
	return nil
}

// SendMediaBetween is a.SendMediaTo(b) followed by b.SendMediaTo(a). It is
// not atomic: when the second half fails the first one stays in place.
func (s *Session) SendMediaBetween(a, b core.MediaUnit) error {
	if a == nil || b == nil {
		return domain.NewError(domain.KindInvalidTarget, "sendMediaBetween", "both media units are required")
	}
	if err := a.SendMediaTo(b); err != nil {
		return err
	}
	return b.SendMediaTo(a)
}

// StopMediaBetween is a.StopMediaTo(b) followed by b.StopMediaTo(a), with the
// same non-atomic behaviour as SendMediaBetween.
func (s *Session) StopMediaBetween(a, b core.MediaUnit) error {
	if a == nil || b == nil {
		return domain.NewError(domain.KindInvalidTarget, "stopMediaBetween", "both media units are required")
	}
	if err := a.StopMediaTo(b); err != nil {
		return err
	}
	return b.StopMediaTo(a)
}
