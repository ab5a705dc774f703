package session

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal in-memory Store for tests.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func newTestSession() *Session {
	return New(newMemStore())
}

func f64(v float64) *float64 { return &v }

func TestTargetValid(t *testing.T) {
	t.Run("manual requires all three fields", func(t *testing.T) {
		assert.False(t, Target{}.Valid())
		assert.False(t, Target{AgeGroups: []string{"20대"}}.Valid())
		assert.False(t, Target{AgeGroups: []string{"20대"}, Genders: []string{"여성"}}.Valid())
		assert.False(t, Target{AgeGroups: []string{"20대"}, Genders: []string{"여성"}, Interests: "  "}.Valid())
		assert.True(t, Target{AgeGroups: []string{"20대"}, Genders: []string{"여성"}, Interests: "쇼핑"}.Valid())
	})

	t.Run("persona alone is sufficient", func(t *testing.T) {
		assert.True(t, Target{Persona: &PersonaRef{ID: "p1", Name: "뷰티/화장품"}}.Valid())
	})
}

func TestTargetAudienceLine(t *testing.T) {
	tgt := Target{
		AgeGroups: []string{"20대", "30대"},
		Genders:   []string{"여성"},
		Interests: "쇼핑",
	}
	assert.Equal(t, "20대, 30대, 여성, 쇼핑", tgt.AudienceLine())

	bare := Target{Persona: &PersonaRef{ID: "p1", Name: "뷰티/화장품"}}
	assert.Equal(t, "뷰티/화장품", bare.AudienceLine())
}

func TestProductJSONFlattensTarget(t *testing.T) {
	prod := Product{
		Target: Target{
			AgeGroups: []string{"20대"},
			Genders:   []string{"남성"},
			Interests: "게임",
		},
		Category:   "게임",
		MarketingA: "지금 시작",
		MarketingB: "오늘만 무료",
	}
	raw, err := json.Marshal(prod)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &flat))
	// Target fields sit at the top level of the predict payload.
	assert.Contains(t, flat, "age_groups")
	assert.Contains(t, flat, "category")
	assert.NotContains(t, flat, "target")
}

func TestPredictionHighestAB(t *testing.T) {
	t.Run("strictly higher A wins", func(t *testing.T) {
		winner, ok := Prediction{CTRA: f64(0.05), CTRB: f64(0.03)}.HighestAB()
		require.True(t, ok)
		assert.Equal(t, OptionA, winner)
	})

	t.Run("strictly higher B wins", func(t *testing.T) {
		winner, ok := Prediction{CTRA: f64(0.02), CTRB: f64(0.04)}.HighestAB()
		require.True(t, ok)
		assert.Equal(t, OptionB, winner)
	})

	t.Run("tie has no winner", func(t *testing.T) {
		_, ok := Prediction{CTRA: f64(0.03), CTRB: f64(0.03)}.HighestAB()
		assert.False(t, ok)
	})

	t.Run("missing value has no winner", func(t *testing.T) {
		_, ok := Prediction{CTRA: f64(0.03)}.HighestAB()
		assert.False(t, ok)
	})

	t.Run("candidate C never competes", func(t *testing.T) {
		winner, ok := Prediction{CTRA: f64(0.02), CTRB: f64(0.01), CTRC: f64(0.99)}.HighestAB()
		require.True(t, ok)
		assert.Equal(t, OptionA, winner)
	})
}

func TestSessionTargetRoundTrip(t *testing.T) {
	s := newTestSession()

	_, err := s.Target()
	assert.ErrorIs(t, err, ErrNoTarget)

	tgt := Target{AgeGroups: []string{"20대"}, Genders: []string{"여성"}, Interests: "쇼핑"}
	require.NoError(t, s.SaveTarget(tgt))

	got, err := s.Target()
	require.NoError(t, err)
	if diff := cmp.Diff(tgt, got); diff != "" {
		t.Errorf("target mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionPredictionRoundTrip(t *testing.T) {
	s := newTestSession()

	_, err := s.Prediction()
	assert.ErrorIs(t, err, ErrNoPrediction)

	pred := Prediction{LogID: "log-1", CTRA: f64(0.04), CTRB: f64(0.02), AISuggestion: "AI 문구"}
	require.NoError(t, s.SavePrediction(pred))

	got, err := s.Prediction()
	require.NoError(t, err)
	assert.Equal(t, "log-1", got.LogID)
	require.NotNil(t, got.CTRA)
	assert.InDelta(t, 0.04, *got.CTRA, 1e-9)
}

func TestSelectionLogAppendOrdering(t *testing.T) {
	s := newTestSession()

	_, err := s.LatestSelection()
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, s.AppendSelectionLog(SelectionLog{SelectedOption: OptionA, MarketingText: "첫번째"}))
	require.NoError(t, s.AppendSelectionLog(SelectionLog{SelectedOption: OptionC, MarketingText: "두번째"}))

	logs, err := s.SelectionLogs()
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, OptionA, logs[0].SelectedOption)
	assert.Equal(t, OptionC, logs[1].SelectedOption)

	// Entries get timestamps on append.
	_, err = time.Parse(time.RFC3339, logs[0].Timestamp)
	assert.NoError(t, err)

	latest, err := s.LatestSelection()
	require.NoError(t, err)
	assert.Equal(t, "두번째", latest.MarketingText)

	// The latest-wins pointer tracks the newest entry.
	sel, ok, err := s.SelectedOption()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OptionC, sel.Option)
	assert.Equal(t, "두번째", sel.Text)
}

func TestChoiceLockSingleWinner(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.Lock("log-1", OptionA, "문구 A"))

	// A second pick fails regardless of candidate.
	assert.ErrorIs(t, s.Lock("log-1", OptionB, "문구 B"), ErrChoiceLocked)
	assert.ErrorIs(t, s.Lock("log-1", OptionA, "문구 A"), ErrChoiceLocked)

	lock, held, err := s.LockState("log-1")
	require.NoError(t, err)
	require.True(t, held)
	assert.Equal(t, OptionA, lock.Option)

	// A different prediction result is unaffected.
	require.NoError(t, s.Lock("log-2", OptionB, "문구 B"))
}

func TestChoiceLockRollback(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.Lock("log-1", OptionA, "문구 A"))
	require.NoError(t, s.Unlock("log-1"))

	_, held, err := s.LockState("log-1")
	require.NoError(t, err)
	assert.False(t, held)

	// After rollback the same or another candidate can be picked again.
	require.NoError(t, s.Lock("log-1", OptionB, "문구 B"))
}

func TestResetClearsEverything(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.SaveTarget(Target{Persona: Personas[0].Ref()}))
	require.NoError(t, s.SaveProduct(Product{Category: "게임", MarketingA: "a", MarketingB: "b"}))
	require.NoError(t, s.SavePrediction(Prediction{LogID: "log-1"}))
	require.NoError(t, s.AppendSelectionLog(SelectionLog{SelectedOption: OptionA}))
	require.NoError(t, s.Lock("log-1", OptionA, "문구"))

	require.NoError(t, s.Reset())

	_, err := s.Target()
	assert.ErrorIs(t, err, ErrNoTarget)
	_, err = s.Prediction()
	assert.ErrorIs(t, err, ErrNoPrediction)
	_, err = s.LatestSelection()
	assert.ErrorIs(t, err, ErrNoSelection)
	_, held, err := s.LockState("log-1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestPersonaApply(t *testing.T) {
	p, ok := PersonaByID("p1")
	require.True(t, ok)

	tgt := p.Apply()
	assert.Equal(t, []string{"20대"}, tgt.AgeGroups)
	assert.Equal(t, []string{"여성"}, tgt.Genders)
	assert.Equal(t, "생활, 노하우, 쇼핑", tgt.Interests)
	require.NotNil(t, tgt.Persona)
	assert.Equal(t, "p1", tgt.Persona.ID)
	assert.True(t, tgt.Valid())
}
