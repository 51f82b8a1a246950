package engine

import (
	"strconv"

	"github.com/dkeye/voxengine/internal/core/event"
)

// Describe flattens an event payload into plain fields that can leave the
// session thread.
func Describe(ev event.Event) map[string]string {
	f := map[string]string{}
	switch e := ev.(type) {
	case *Started:
		f["trigger"] = e.Trigger
	case *CallAlerting:
		f["call"] = string(e.Call.id)
		f["from"] = e.From
		f["to"] = e.To
	case *HTTPRequest:
		f["method"] = e.Method
		f["path"] = e.Path
	case *Terminating:
		f["cause"] = e.Cause
	case *Terminated:
		f["cause"] = e.Cause
		f["failed"] = strconv.FormatBool(e.Failed)
	case *CallConnected:
		f["call"] = string(e.Call.id)
	case *CallDisconnected:
		f["call"] = string(e.Call.id)
		f["cause"] = e.Cause
	case *CallFailed:
		f["call"] = string(e.Call.id)
		f["code"] = strconv.Itoa(e.Code)
		f["reason"] = e.Reason
	case *CallPlaybackFinished:
		f["call"] = string(e.Call.id)
	case *CallToneReceived:
		f["call"] = string(e.Call.id)
		f["tone"] = e.Tone
	case *ConferenceStarted:
		f["conference"] = string(e.Conference.id)
	case *ConferenceStopped:
		f["conference"] = string(e.Conference.id)
	case *EndpointAdded:
		f["conference"] = string(e.Conference.id)
		f["endpoint"] = string(e.Endpoint.id)
	case *EndpointRemoved:
		f["conference"] = string(e.Conference.id)
		f["endpoint"] = string(e.Endpoint.id)
		f["reason"] = e.Reason
	case *ConferenceError:
		f["conference"] = string(e.Conference.id)
		f["code"] = strconv.Itoa(e.Code)
		f["message"] = e.Message
	case *UnitStopped:
		f["unit"] = string(e.Unit.id)
		f["kind"] = string(e.Unit.kind)
	case *PlaybackFinished:
		f["unit"] = string(e.Unit.id)
	case *UnitResult:
		f["unit"] = string(e.Unit.id)
		f["name"] = e.Name
	}
	return f
}
