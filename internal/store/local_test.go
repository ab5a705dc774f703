package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := OpenLocal(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalRoundTrip(t *testing.T) {
	l := openTestLocal(t)

	_, ok, err := l.Get("target")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Set("target", []byte(`{"interests":"쇼핑"}`)))

	v, ok, err := l.Get("target")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"interests":"쇼핑"}`, string(v))
}

func TestLocalUpsert(t *testing.T) {
	l := openTestLocal(t)

	require.NoError(t, l.Set("k", []byte("one")))
	require.NoError(t, l.Set("k", []byte("two")))

	v, ok, err := l.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(v))
}

func TestLocalDelete(t *testing.T) {
	l := openTestLocal(t)

	require.NoError(t, l.Set("k", []byte("v")))
	require.NoError(t, l.Delete("k"))

	_, ok, err := l.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	require.NoError(t, l.Delete("k"))
}

func TestLocalKeysPrefix(t *testing.T) {
	l := openTestLocal(t)

	require.NoError(t, l.Set("choice_lock_log-1", []byte("{}")))
	require.NoError(t, l.Set("choice_lock_log-2", []byte("{}")))
	require.NoError(t, l.Set("target", []byte("{}")))

	keys, err := l.Keys("choice_lock_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"choice_lock_log-1", "choice_lock_log-2"}, keys)

	all, err := l.Keys("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.db")

	l, err := OpenLocal(path)
	require.NoError(t, err)
	require.NoError(t, l.Set("prediction", []byte(`{"log_id":"log-1"}`)))
	require.NoError(t, l.Close())

	l, err = OpenLocal(path)
	require.NoError(t, err)
	defer l.Close()

	v, ok, err := l.Get("prediction")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(v), "log-1")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Set("a", []byte("1")))
	require.NoError(t, m.Set("ab", []byte("2")))
	require.NoError(t, m.Set("b", []byte("3")))

	v, ok, err := m.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	keys, err := m.Keys("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ab"}, keys)

	require.NoError(t, m.Delete("a"))
	_, ok, err = m.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	m := NewMemory()

	buf := []byte("original")
	require.NoError(t, m.Set("k", buf))
	buf[0] = 'X'

	v, ok, err := m.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", string(v))
}
