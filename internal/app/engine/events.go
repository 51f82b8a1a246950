package engine

import "github.com/dkeye/voxengine/internal/core/event"

// Payloads for every event kind. Kind is declared on the pointer receiver so
// event.On can derive the kind from a nil *T.

type Started struct {
	Session *Session
	Trigger string
}

func (*Started) Kind() event.Kind { return event.AppStarted }

type CallAlerting struct {
	Session     *Session
	Call        *Call
	From        string
	To          string
	DisplayName string
	Headers     map[string]string
}

func (*CallAlerting) Kind() event.Kind { return event.AppCallAlerting }

type HTTPRequest struct {
	Session *Session
	Method  string
	Path    string
	Headers map[string]string
	Body    string
}

func (*HTTPRequest) Kind() event.Kind { return event.AppHTTPRequest }

type Terminating struct {
	Session *Session
	Cause   string
}

func (*Terminating) Kind() event.Kind { return event.AppTerminating }

// Terminated is the last event of a session. Failed is set when the session
// ended because of a fatal condition; Cause then describes it.
type Terminated struct {
	Session *Session
	Cause   string
	Failed  bool
}

func (*Terminated) Kind() event.Kind { return event.AppTerminated }

type CallConnected struct {
	Call    *Call
	Headers map[string]string
}

func (*CallConnected) Kind() event.Kind { return event.CallConnected }

type CallDisconnected struct {
	Call    *Call
	Cause   string
	Headers map[string]string
}

func (*CallDisconnected) Kind() event.Kind { return event.CallDisconnected }

type CallFailed struct {
	Call   *Call
	Code   int
	Reason string
	// Err is a *domain.Error of KindTimeout when the setup deadline expired.
	Err error
}

func (*CallFailed) Kind() event.Kind { return event.CallFailed }

type CallPlaybackFinished struct {
	Call *Call
}

func (*CallPlaybackFinished) Kind() event.Kind { return event.CallPlaybackFinished }

type CallToneReceived struct {
	Call *Call
	Tone string
}

func (*CallToneReceived) Kind() event.Kind { return event.CallToneReceived }

type ConferenceStarted struct {
	Conference *Conference
}

func (*ConferenceStarted) Kind() event.Kind { return event.ConferenceStarted }

type ConferenceStopped struct {
	Conference *Conference
}

func (*ConferenceStopped) Kind() event.Kind { return event.ConferenceStopped }

type EndpointAdded struct {
	Conference *Conference
	Endpoint   *Endpoint
}

func (*EndpointAdded) Kind() event.Kind { return event.ConferenceEndpointAdded }

type EndpointRemoved struct {
	Conference *Conference
	Endpoint   *Endpoint
	Reason     string
}

func (*EndpointRemoved) Kind() event.Kind { return event.ConferenceEndpointRemoved }

type ConferenceError struct {
	Conference *Conference
	Code       int
	Message    string
}

func (*ConferenceError) Kind() event.Kind { return event.ConferenceError }

type UnitStopped struct {
	Unit *Unit
}

func (*UnitStopped) Kind() event.Kind { return event.UnitStopped }

type PlaybackFinished struct {
	Unit *Unit
}

func (*PlaybackFinished) Kind() event.Kind { return event.UnitPlaybackFinished }

type UnitResult struct {
	Unit *Unit
	Name string
	Data map[string]string
}

func (*UnitResult) Kind() event.Kind { return event.UnitResult }
