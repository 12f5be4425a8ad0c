package core

// Phase is the explicit position of a conversation within the scripted
// gather → advise → follow-up → lookup protocol.  It is stored on the
// conversation and advanced only by its transition methods, never derived
// from message text.
type Phase int

const (
	// PhaseGathering: the model is collecting information one clarifying
	// question at a time.
	PhaseGathering Phase = iota
	// PhaseAdvicePending: an advice-shaped response has just been received.
	PhaseAdvicePending
	// PhaseFollowUpOffered: the fixed follow-up question is the latest turn.
	PhaseFollowUpOffered
	// PhaseFacilityLookup: waiting for the client to report its location.
	PhaseFacilityLookup
)

func (p Phase) String() string {
	switch p {
	case PhaseGathering:
		return "gathering"
	case PhaseAdvicePending:
		return "advice_pending"
	case PhaseFollowUpOffered:
		return "follow_up_offered"
	case PhaseFacilityLookup:
		return "facility_lookup"
	default:
		return "unknown"
	}
}
