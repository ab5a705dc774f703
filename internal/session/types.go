// Package session holds the wizard state model: the typed records passed
// between steps, the key-value storage port they live behind, the durable
// choice lock, and the selection-recording policies.
//
// Every record is a plain JSON-serializable struct. Screens never hold a
// long-lived copy; they re-read from the store on mount and write back
// within the same handler turn.
package session

import (
	"errors"
	"strings"
)

// Storage keys. Values are JSON-encoded blobs.
const (
	KeyTarget         = "target"
	KeyProduct        = "product"
	KeyPrediction     = "prediction"
	KeySelectedOption = "selectedOption"
	KeySelectionLogs  = "selectionLogs"
	lockKeyPrefix     = "choice_lock_"
)

// Sentinel errors for upstream state that a later step depends on.
var (
	ErrNoTarget     = errors.New("no target stored; complete the target step first")
	ErrNoPrediction = errors.New("no prediction stored; run the product step first")
	ErrNoSelection  = errors.New("no selection logged; pick a candidate on the prediction step first")

	// ErrChoiceLocked is returned when a choice for the current prediction
	// result is already pinned to another candidate.
	ErrChoiceLocked = errors.New("a candidate is already locked for this prediction result")
)

// Option identifies one of the three evaluated candidates.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C" // AI-suggested copy
)

// PersonaRef is the stored reference to a selected persona preset.
type PersonaRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Target is the audience definition collected by the first step.
type Target struct {
	AgeGroups []string    `json:"age_groups"`
	Genders   []string    `json:"genders"`
	Interests string      `json:"interests"`
	Persona   *PersonaRef `json:"persona"`
}

// Valid reports whether the target may be submitted: full manual input
// (ages, genders and interests all present) or a persona shortcut.
func (t Target) Valid() bool {
	if t.Persona != nil {
		return true
	}
	return len(t.AgeGroups) > 0 && len(t.Genders) > 0 && strings.TrimSpace(t.Interests) != ""
}

// AudienceLine renders the target as a single display string, the form the
// image-generation endpoint expects for its target_audience field.
func (t Target) AudienceLine() string {
	parts := append(append([]string{}, t.AgeGroups...), t.Genders...)
	if strings.TrimSpace(t.Interests) != "" {
		parts = append(parts, t.Interests)
	}
	if len(parts) == 0 && t.Persona != nil {
		return t.Persona.Name
	}
	return strings.Join(parts, ", ")
}

// Product is the target merged with the product step's input. The embedded
// Target flattens into the same JSON object, matching the predict payload.
type Product struct {
	Target
	Category   string `json:"category"`
	MarketingA string `json:"marketing_a"`
	MarketingB string `json:"marketing_b"`
}

// Valid reports whether the product step may submit.
func (p Product) Valid() bool {
	return strings.TrimSpace(p.Category) != "" &&
		strings.TrimSpace(p.MarketingA) != "" &&
		strings.TrimSpace(p.MarketingB) != ""
}

// Prediction is the opaque result of the predict call. Immutable once
// stored. CTR fields are pointers: the backend may omit any of them.
type Prediction struct {
	LogID          string   `json:"log_id"`
	CTRA           *float64 `json:"ctr_a"`
	CTRB           *float64 `json:"ctr_b"`
	CTRC           *float64 `json:"ctr_c"`
	AnalysisA      string   `json:"analysis_a"`
	AnalysisB      string   `json:"analysis_b"`
	AnalysisC      string   `json:"analysis_c"`
	AISuggestion   string   `json:"ai_suggestion"`
	AITopCTRChoice string   `json:"ai_top_ctr_choice,omitempty"`
}

// HighestAB returns which of A/B has the strictly higher predicted CTR.
// Ties and missing values yield no winner. Candidate C never competes for
// the badge regardless of its value.
func (p Prediction) HighestAB() (Option, bool) {
	if p.CTRA == nil || p.CTRB == nil {
		return "", false
	}
	switch {
	case *p.CTRA > *p.CTRB:
		return OptionA, true
	case *p.CTRB > *p.CTRA:
		return OptionB, true
	}
	return "", false
}

// CTRFor returns the predicted CTR for the given candidate, if present.
func (p Prediction) CTRFor(opt Option) *float64 {
	switch opt {
	case OptionA:
		return p.CTRA
	case OptionB:
		return p.CTRB
	case OptionC:
		return p.CTRC
	}
	return nil
}

// TextFor returns the marketing copy a candidate stands for.
func (p Prediction) TextFor(opt Option, prod Product) string {
	switch opt {
	case OptionA:
		return prod.MarketingA
	case OptionB:
		return prod.MarketingB
	case OptionC:
		return p.AISuggestion
	}
	return ""
}

// SelectionLog is one entry of the append-only choice history. The latest
// entry is authoritative for the image step.
type SelectionLog struct {
	Timestamp      string     `json:"timestamp"`
	SelectedOption Option     `json:"selectedOption"`
	MarketingText  string     `json:"marketingText"`
	CTR            float64    `json:"ctr"`
	Target         Target     `json:"target"`
	Product        Product    `json:"product"`
	Result         Prediction `json:"result"`
}

// SelectedOption is the latest-wins pointer to the current choice.
type SelectedOption struct {
	Option  Option  `json:"option"`
	Text    string  `json:"text"`
	Target  Target  `json:"target"`
	Product Product `json:"product"`
}

// ChoiceLock pins the chosen candidate for one prediction result. It is
// written synchronously before the first generation call and removed only
// when that call fails.
type ChoiceLock struct {
	Locked bool   `json:"locked"`
	Option Option `json:"option"`
	Text   string `json:"text"`
}

// LockKey returns the storage key of the lock record for a result.
func LockKey(logID string) string {
	return lockKeyPrefix + logID
}
