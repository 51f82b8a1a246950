package engine

import (
	"time"

	"github.com/dkeye/voxengine/internal/app/media"
	"github.com/dkeye/voxengine/internal/domain"
)

type CallInfo struct {
	ID        domain.CallID   `json:"id"`
	Unit      domain.UnitID   `json:"unit"`
	Kind      domain.CallKind `json:"kind"`
	Direction string          `json:"direction"`
	State     string          `json:"state"`
	To        string          `json:"to,omitempty"`
	CallerID  string          `json:"caller_id,omitempty"`
	P2P       bool            `json:"p2p,omitempty"`
}

type UnitInfo struct {
	ID   domain.UnitID   `json:"id"`
	Kind domain.UnitKind `json:"kind"`
}

// Snapshot is a point-in-time copy of a session, safe to hand to other
// goroutines.
type Snapshot struct {
	ID          domain.SessionID `json:"id"`
	State       string           `json:"state"`
	Trigger     string           `json:"trigger"`
	CreatedAt   time.Time        `json:"created_at"`
	CustomData  string           `json:"custom_data,omitempty"`
	Cause       string           `json:"cause,omitempty"`
	Failed      bool             `json:"failed,omitempty"`
	Calls       []CallInfo       `json:"calls"`
	Conferences []ConferenceInfo `json:"conferences"`
	Units       []UnitInfo       `json:"units"`
	Routes      []media.Route    `json:"routes"`
}

// Snapshot must run on the session thread.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		State:       s.state.String(),
		Trigger:     s.trigger.String(),
		CreatedAt:   s.createdAt,
		CustomData:  s.customData,
		Cause:       s.cause,
		Failed:      s.failed,
		Calls:       make([]CallInfo, 0, len(s.callOrder)),
		Conferences: s.conferences.list(),
		Units:       make([]UnitInfo, 0, len(s.unitOrder)),
		Routes:      s.router.Routes(),
	}
	for _, c := range s.Calls() {
		snap.Calls = append(snap.Calls, CallInfo{
			ID:        c.id,
			Unit:      c.unitID,
			Kind:      c.kind,
			Direction: c.dir.String(),
			State:     c.state.String(),
			To:        c.to,
			CallerID:  c.callerID,
			P2P:       c.p2p,
		})
	}
	for _, id := range s.unitOrder {
		snap.Units = append(snap.Units, UnitInfo{ID: id, Kind: s.units[id].UnitKind()})
	}
	return snap
}
