package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Store is the key-value storage port every screen depends on. Values are
// opaque JSON blobs; Get reports presence separately so callers can tell
// "absent" from "empty".
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// Session wraps a Store with typed accessors for the wizard records.
type Session struct {
	store Store
	now   func() time.Time
}

// New returns a session over the given store.
func New(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

func (s *Session) get(key string, v interface{}) (bool, error) {
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Session) set(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Set(key, raw)
}

// SaveTarget overwrites the stored target.
func (s *Session) SaveTarget(t Target) error {
	return s.set(KeyTarget, t)
}

// Target loads the stored target. ErrNoTarget when absent.
func (s *Session) Target() (Target, error) {
	var t Target
	ok, err := s.get(KeyTarget, &t)
	if err != nil {
		return Target{}, err
	}
	if !ok {
		return Target{}, ErrNoTarget
	}
	return t, nil
}

// SaveProduct overwrites the stored product payload. This happens before
// the predict call so the input survives a failed request.
func (s *Session) SaveProduct(p Product) error {
	return s.set(KeyProduct, p)
}

// Product loads the stored product payload.
func (s *Session) Product() (Product, bool, error) {
	var p Product
	ok, err := s.get(KeyProduct, &p)
	return p, ok, err
}

// SavePrediction stores a predict result. Written only on success.
func (s *Session) SavePrediction(p Prediction) error {
	return s.set(KeyPrediction, p)
}

// Prediction loads the stored predict result. ErrNoPrediction when absent.
func (s *Session) Prediction() (Prediction, error) {
	var p Prediction
	ok, err := s.get(KeyPrediction, &p)
	if err != nil {
		return Prediction{}, err
	}
	if !ok {
		return Prediction{}, ErrNoPrediction
	}
	return p, nil
}

// AppendSelectionLog appends one entry to the choice history and moves the
// latest-wins pointer. The history itself is never mutated or truncated
// except by Reset.
func (s *Session) AppendSelectionLog(entry SelectionLog) error {
	if entry.Timestamp == "" {
		entry.Timestamp = s.now().Format(time.RFC3339)
	}
	logs, err := s.SelectionLogs()
	if err != nil {
		return err
	}
	logs = append(logs, entry)
	if err := s.set(KeySelectionLogs, logs); err != nil {
		return err
	}
	return s.set(KeySelectedOption, SelectedOption{
		Option:  entry.SelectedOption,
		Text:    entry.MarketingText,
		Target:  entry.Target,
		Product: entry.Product,
	})
}

// SelectionLogs returns the full choice history, oldest first.
func (s *Session) SelectionLogs() ([]SelectionLog, error) {
	var logs []SelectionLog
	if _, err := s.get(KeySelectionLogs, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// LatestSelection returns the most recent history entry, the one the image
// step treats as authoritative. ErrNoSelection when the history is empty.
func (s *Session) LatestSelection() (SelectionLog, error) {
	logs, err := s.SelectionLogs()
	if err != nil {
		return SelectionLog{}, err
	}
	if len(logs) == 0 {
		return SelectionLog{}, ErrNoSelection
	}
	return logs[len(logs)-1], nil
}

// SelectedOption loads the latest-wins pointer.
func (s *Session) SelectedOption() (SelectedOption, bool, error) {
	var sel SelectedOption
	ok, err := s.get(KeySelectedOption, &sel)
	return sel, ok, err
}

// Lock pins a candidate for the given prediction result. The write is
// synchronous: it lands before any network call starts, which is what
// closes the double-submit window. ErrChoiceLocked if any candidate is
// already pinned for this result.
func (s *Session) Lock(logID string, opt Option, text string) error {
	if _, held, err := s.LockState(logID); err != nil {
		return err
	} else if held {
		return ErrChoiceLocked
	}
	return s.set(LockKey(logID), ChoiceLock{Locked: true, Option: opt, Text: text})
}

// Unlock removes the lock record for a result, returning the flow to the
// unlocked state. Called only on generation failure.
func (s *Session) Unlock(logID string) error {
	return s.store.Delete(LockKey(logID))
}

// LockState reports the lock record for a result, if one is held.
func (s *Session) LockState(logID string) (ChoiceLock, bool, error) {
	var lock ChoiceLock
	ok, err := s.get(LockKey(logID), &lock)
	if err != nil || !ok {
		return ChoiceLock{}, false, err
	}
	return lock, lock.Locked, nil
}

// Reset clears every wizard record, including all lock records. This is
// the only path that removes selection history.
func (s *Session) Reset() error {
	for _, key := range []string{KeyTarget, KeyProduct, KeyPrediction, KeySelectedOption, KeySelectionLogs} {
		if err := s.store.Delete(key); err != nil {
			return err
		}
	}
	lockKeys, err := s.store.Keys(lockKeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range lockKeys {
		if err := s.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
