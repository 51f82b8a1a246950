package core

import "github.com/dkeye/voxengine/internal/domain"

// MediaUnit is anything that can take part in a media route: calls,
// conferences, conference endpoints and auxiliary units (ASR, Player, IVR,
// Recorder). Units belong to exactly one session.
type MediaUnit interface {
	UnitID() domain.UnitID
	UnitKind() domain.UnitKind
	SessionID() domain.SessionID
	// Live is false once the unit has been torn down.
	Live() bool
	// SendMediaTo adds the directed route self -> target. Adding an existing route is a no-op.
	SendMediaTo(target MediaUnit) error
	// StopMediaTo removes the directed route self -> target if present.
	StopMediaTo(target MediaUnit) error
}
