package session

// CandidatePhase is the per-candidate generation state. Modeled as a tagged
// variant instead of loose booleans so illegal combinations cannot be
// represented.
type CandidatePhase int

const (
	// CandidateIdle means no generation has been attempted.
	CandidateIdle CandidatePhase = iota
	// CandidateGenerating means a generation request is in flight.
	CandidateGenerating
	// CandidateReady means an image reference is cached and the candidate's
	// action is a download trigger.
	CandidateReady
	// CandidateFailed means the last generation attempt failed.
	CandidateFailed
)

// CandidateState carries the phase plus its payload: the image reference
// when Ready, the failure reason when Failed.
type CandidateState struct {
	Phase    CandidatePhase
	ImageRef string
	Reason   string
}

// Idle reports whether a new generation attempt may start.
func (c CandidateState) Idle() bool {
	return c.Phase == CandidateIdle || c.Phase == CandidateFailed
}

// Generating marks a request in flight.
func Generating() CandidateState {
	return CandidateState{Phase: CandidateGenerating}
}

// Ready caches an image reference for the rest of the screen's lifetime.
func Ready(ref string) CandidateState {
	return CandidateState{Phase: CandidateReady, ImageRef: ref}
}

// Failed records why the attempt failed.
func Failed(reason string) CandidateState {
	return CandidateState{Phase: CandidateFailed, Reason: reason}
}
