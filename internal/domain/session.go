package domain

import (
	"time"
	"unicode/utf8"
)

const (
	MaxCustomDataLen = 200
	MaxEndpoints     = 100
	CallSetupTimeout = 60 * time.Second
)

type SessionState int

const (
	SessionStarting SessionState = iota
	SessionRunning
	SessionTerminating
	SessionTerminated
)

func (s SessionState) String() string {
	switch s {
	case SessionStarting:
		return "Starting"
	case SessionRunning:
		return "Running"
	case SessionTerminating:
		return "Terminating"
	case SessionTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ValidateCustomData enforces the byte limit and UTF-8 encoding shared by
// session and call custom data.
func ValidateCustomData(op, data string) error {
	if len(data) > MaxCustomDataLen {
		return NewError(KindValidation, op, "custom data is %d bytes, limit is %d", len(data), MaxCustomDataLen)
	}
	if !utf8.ValidString(data) {
		return NewError(KindValidation, op, "custom data is not valid UTF-8")
	}
	return nil
}

// TriggerKind says what started a session.
type TriggerKind int

const (
	TriggerHTTPRequest TriggerKind = iota
	TriggerCallAlerting
)

func (k TriggerKind) String() string {
	if k == TriggerCallAlerting {
		return "CallAlerting"
	}
	return "HttpRequest"
}
