package app

import "github.com/dkeye/voxengine/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	CloseObserver
)

// Policy decides what happens to an event observer that does not keep up.
// dropped counts the records already lost by that observer.
type Policy interface {
	OnBackPressure(sid domain.SessionID, dropped int) BackpressureAction
}

// SimplePolicy drops records for a slow observer and disconnects it once
// MaxDropped records were lost. Zero disconnects on the first loss.
type SimplePolicy struct {
	MaxDropped int
}

func (p SimplePolicy) OnBackPressure(_ domain.SessionID, dropped int) BackpressureAction {
	if dropped >= p.MaxDropped {
		return CloseObserver
	}
	return DropEvent
}
