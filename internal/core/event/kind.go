package event

import "fmt"

// Kind is the tag identifying an event class. Handlers are registered per Kind.
type Kind uint16

const (
	KindUnknown Kind = iota

	AppStarted
	AppCallAlerting
	AppHTTPRequest
	AppTerminating
	AppTerminated

	CallConnected
	CallDisconnected
	CallFailed
	CallPlaybackFinished
	CallToneReceived

	ConferenceStarted
	ConferenceStopped
	ConferenceEndpointAdded
	ConferenceEndpointRemoved
	ConferenceError

	UnitStopped
	UnitPlaybackFinished
	UnitResult
)

var kindNames = map[Kind]string{
	AppStarted:                "AppEvents.Started",
	AppCallAlerting:           "AppEvents.CallAlerting",
	AppHTTPRequest:            "AppEvents.HttpRequest",
	AppTerminating:            "AppEvents.Terminating",
	AppTerminated:             "AppEvents.Terminated",
	CallConnected:             "CallEvents.Connected",
	CallDisconnected:          "CallEvents.Disconnected",
	CallFailed:                "CallEvents.Failed",
	CallPlaybackFinished:      "CallEvents.PlaybackFinished",
	CallToneReceived:          "CallEvents.ToneReceived",
	ConferenceStarted:         "ConferenceEvents.Started",
	ConferenceStopped:         "ConferenceEvents.Stopped",
	ConferenceEndpointAdded:   "ConferenceEvents.EndpointAdded",
	ConferenceEndpointRemoved: "ConferenceEvents.EndpointRemoved",
	ConferenceError:           "ConferenceEvents.ConferenceError",
	UnitStopped:               "MediaUnitEvents.Stopped",
	UnitPlaybackFinished:      "PlayerEvents.PlaybackFinished",
	UnitResult:                "MediaUnitEvents.Result",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Kind sets accepted by the bus of each owner.
var (
	AppKinds        = []Kind{AppStarted, AppCallAlerting, AppHTTPRequest, AppTerminating, AppTerminated}
	CallKinds       = []Kind{CallConnected, CallDisconnected, CallFailed, CallPlaybackFinished, CallToneReceived}
	ConferenceKinds = []Kind{ConferenceStarted, ConferenceStopped, ConferenceEndpointAdded, ConferenceEndpointRemoved, ConferenceError}
	UnitKinds       = []Kind{UnitStopped, UnitPlaybackFinished, UnitResult}
)
