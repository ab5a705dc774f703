package session

import (
	"fmt"
	"strings"
)

// Choice is one confirmed candidate pick, everything a policy needs to
// record it.
type Choice struct {
	Option  Option
	Text    string
	CTR     float64
	Target  Target
	Product Product
	Result  Prediction
}

// ChoicePolicy is the strategy for recording a confirmed choice. The source
// history carries two divergent behaviors; both live behind this interface
// and the active one is picked by configuration.
//
// Begin runs synchronously before any network call, Commit after the
// critical-path call succeeds, Rollback after it fails.
type ChoicePolicy interface {
	Name() string
	Begin(s *Session, c Choice) error
	Commit(s *Session, c Choice) error
	Rollback(s *Session, logID string) error
}

// SingleChoiceLockPolicy pins the first picked candidate durably per
// prediction result. A second pick, on the same or a different candidate,
// fails with ErrChoiceLocked until a generation failure rolls the lock back.
type SingleChoiceLockPolicy struct{}

func (SingleChoiceLockPolicy) Name() string { return "lock" }

func (SingleChoiceLockPolicy) Begin(s *Session, c Choice) error {
	return s.Lock(c.Result.LogID, c.Option, c.Text)
}

// Commit records the confirmed choice into the selection history. The lock
// itself stays in place for the life of the prediction result.
func (SingleChoiceLockPolicy) Commit(s *Session, c Choice) error {
	return s.AppendSelectionLog(SelectionLog{
		SelectedOption: c.Option,
		MarketingText:  c.Text,
		CTR:            c.CTR,
		Target:         c.Target,
		Product:        c.Product,
		Result:         c.Result,
	})
}

func (SingleChoiceLockPolicy) Rollback(s *Session, logID string) error {
	return s.Unlock(logID)
}

// AppendOnlyLogPolicy records every confirmed pick immediately into the
// selection history and the latest-wins pointer. No lock; the image step
// consumes the latest entry.
type AppendOnlyLogPolicy struct{}

func (AppendOnlyLogPolicy) Name() string { return "append" }

func (AppendOnlyLogPolicy) Begin(s *Session, c Choice) error {
	return s.AppendSelectionLog(SelectionLog{
		SelectedOption: c.Option,
		MarketingText:  c.Text,
		CTR:            c.CTR,
		Target:         c.Target,
		Product:        c.Product,
		Result:         c.Result,
	})
}

func (AppendOnlyLogPolicy) Commit(s *Session, c Choice) error { return nil }

// Rollback keeps the history entry: the log is append-only and the entry
// reflects a pick the user really made.
func (AppendOnlyLogPolicy) Rollback(s *Session, logID string) error { return nil }

// ChoicePolicyByName resolves a configured policy name.
func ChoicePolicyByName(name string) (ChoicePolicy, error) {
	switch name {
	case "lock", "":
		return SingleChoiceLockPolicy{}, nil
	case "append":
		return AppendOnlyLogPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown choice policy %q", name)
}

// StylePolicy decides how the image style modifier participates in prompt
// composition. The stricter source variant required a style before
// generating; the looser one appended it when present.
type StylePolicy interface {
	Name() string
	// Validate reports whether generation may start with the given style.
	Validate(style string) error
	// Compose merges marketing text and style into the single prompt sent
	// to the image endpoint.
	Compose(marketingText, style string) string
}

// OptionalStylePolicy appends the style as a secondary line when present.
type OptionalStylePolicy struct{}

func (OptionalStylePolicy) Name() string { return "optional" }

func (OptionalStylePolicy) Validate(style string) error { return nil }

func (OptionalStylePolicy) Compose(marketingText, style string) string {
	if strings.TrimSpace(style) == "" {
		return marketingText
	}
	return marketingText + "\n\n스타일 요청: " + style
}

// StrictStylePolicy requires a style before generating.
type StrictStylePolicy struct{}

func (StrictStylePolicy) Name() string { return "strict" }

func (StrictStylePolicy) Validate(style string) error {
	if strings.TrimSpace(style) == "" {
		return fmt.Errorf("image style is required")
	}
	return nil
}

func (StrictStylePolicy) Compose(marketingText, style string) string {
	return marketingText + "\n\n스타일 요청: " + style
}

// StylePolicyByName resolves a configured style policy name.
func StylePolicyByName(name string) (StylePolicy, error) {
	switch name {
	case "optional", "":
		return OptionalStylePolicy{}, nil
	case "strict":
		return StrictStylePolicy{}, nil
	}
	return nil, fmt.Errorf("unknown style policy %q", name)
}
