package domain

type ConferenceVariant int

const (
	Standalone ConferenceVariant = iota
	VideoEnabled
)

func (v ConferenceVariant) String() string {
	if v == VideoEnabled {
		return "VideoEnabled"
	}
	return "Standalone"
}

// ConferenceParameters mirror the options accepted when a conference is created.
type ConferenceParameters struct {
	Name    string            `json:"name,omitempty"`
	HDAudio bool              `json:"hd_audio"`
	Variant ConferenceVariant `json:"variant"`
}

// MediaDirection says which way media flows between an endpoint and the
// call bound to it.
type MediaDirection int

const (
	DirectionBoth MediaDirection = iota
	DirectionSend
	DirectionReceive
)

func (d MediaDirection) String() string {
	switch d {
	case DirectionSend:
		return "send"
	case DirectionReceive:
		return "receive"
	default:
		return "both"
	}
}
