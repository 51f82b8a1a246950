package core

import "github.com/dkeye/voxengine/internal/domain"

type NotificationType string

const (
	NotifyAnswered         NotificationType = "answered"
	NotifyDisconnected     NotificationType = "disconnected"
	NotifyFailed           NotificationType = "failed"
	NotifyPlaybackFinished NotificationType = "playback_finished"
	NotifyTone             NotificationType = "tone"
	NotifyEndpointLeft     NotificationType = "endpoint_left"
	NotifyUnitResult       NotificationType = "unit_result"
)

// Notification is an asynchronous report from the signaling/media layer.
// It re-enters the owning session as exactly one event.
type Notification struct {
	Type       NotificationType    `json:"type"`
	Call       domain.CallID       `json:"call,omitempty"`
	Unit       domain.UnitID       `json:"unit,omitempty"`
	Conference domain.ConferenceID `json:"conference,omitempty"`
	Endpoint   domain.EndpointID   `json:"endpoint,omitempty"`
	Code       int                 `json:"code,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Tone       string              `json:"tone,omitempty"`
	Name       string              `json:"name,omitempty"`
	Data       map[string]string   `json:"data,omitempty"`
	Headers    map[string]string   `json:"headers,omitempty"`
}
