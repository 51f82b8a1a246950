package domain

type UnitKind string

const (
	UnitCall       UnitKind = "call"
	UnitConference UnitKind = "conference"
	UnitEndpoint   UnitKind = "endpoint"
	UnitASR        UnitKind = "asr"
	UnitPlayer     UnitKind = "player"
	UnitIVR        UnitKind = "ivr"
	UnitRecorder   UnitKind = "recorder"
)

// IsAuxiliary reports whether units of this kind are produced by the
// external media-unit factories.
func (k UnitKind) IsAuxiliary() bool {
	switch k {
	case UnitASR, UnitPlayer, UnitIVR, UnitRecorder:
		return true
	}
	return false
}
