package core

//go:generate mockgen -source=signal_iface.go -destination=mocks/mock_signaling.go -package=mocks

import "github.com/dkeye/voxengine/internal/domain"

// Signaling is the boundary to the external signaling/media layer.
// Every method is called on a session thread and must not block: the
// implementation queues the request and any outcome comes back later as a
// Notification.
type Signaling interface {
	Dial(DialRequest) error
	Command(CallCommand) error
	Route(RouteChange) error
	Unit(UnitCommand) error
}

type DialRequest struct {
	Session     domain.SessionID  `json:"session"`
	Call        domain.CallID     `json:"call"`
	Kind        domain.CallKind   `json:"kind"`
	To          string            `json:"to"`
	CallerID    string            `json:"caller_id,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Video       bool              `json:"video,omitempty"`
	P2P         bool              `json:"p2p,omitempty"`
	// Peer is the inbound call a direct (P2P) call is bridged with.
	Peer domain.CallID `json:"peer,omitempty"`
}

type CommandOp string

const (
	OpAnswer CommandOp = "answer"
	OpReject CommandOp = "reject"
	OpHangup CommandOp = "hangup"
	OpSay    CommandOp = "say"
	OpDigits CommandOp = "digits"
)

type CallCommand struct {
	Session domain.SessionID  `json:"session"`
	Call    domain.CallID     `json:"call"`
	Op      CommandOp         `json:"op"`
	Text    string            `json:"text,omitempty"`
	Code    int               `json:"code,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

type RouteChange struct {
	Session domain.SessionID `json:"session"`
	Source  domain.UnitID    `json:"source"`
	Target  domain.UnitID    `json:"target"`
	Active  bool             `json:"active"`
}

type UnitOp string

const (
	UnitCreate UnitOp = "create"
	UnitStop   UnitOp = "stop"
)

type UnitCommand struct {
	Session domain.SessionID  `json:"session"`
	Unit    domain.UnitID     `json:"unit"`
	Kind    domain.UnitKind   `json:"kind"`
	Op      UnitOp            `json:"op"`
	Params  map[string]string `json:"params,omitempty"`
}

// NopSignaling accepts everything and never reports back. Useful for
// scenarios driven entirely by injected notifications.
type NopSignaling struct{}

func (NopSignaling) Dial(DialRequest) error    { return nil }
func (NopSignaling) Command(CallCommand) error { return nil }
func (NopSignaling) Route(RouteChange) error   { return nil }
func (NopSignaling) Unit(UnitCommand) error    { return nil }
