package domain

type CallState int

const (
	CallAlerting CallState = iota
	CallConnected
	CallDisconnected
	CallFailed
)

func (s CallState) String() string {
	switch s {
	case CallAlerting:
		return "Alerting"
	case CallConnected:
		return "Connected"
	case CallDisconnected:
		return "Disconnected"
	case CallFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s CallState) IsTerminal() bool {
	return s == CallDisconnected || s == CallFailed
}

type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Outbound {
		return "Outbound"
	}
	return "Inbound"
}

// CallKind records which factory produced an outbound call.
type CallKind string

const (
	CallKindInbound    CallKind = "inbound"
	CallKindPSTN       CallKind = "pstn"
	CallKindSIP        CallKind = "sip"
	CallKindUser       CallKind = "user"
	CallKindUserDirect CallKind = "user_direct"
	CallKindConference CallKind = "conference"
)

// Failure codes carried by CallEvents.Failed.
const (
	CodeTimeout            = 408
	CodeSignalingDown      = 503
	CodeTerminatedBySystem = 487
)
