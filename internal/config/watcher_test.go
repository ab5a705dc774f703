package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := Path(t.TempDir())
	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(path))

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) {
		reloaded <- c
	})
	require.NoError(t, err)

	cfg.Wizard.ChoicePolicy = "append"
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-reloaded:
		assert.Equal(t, "append", got.Wizard.ChoicePolicy)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	require.NoError(t, w.Close())
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := Path(t.TempDir())
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) {
		reloaded <- c
	})
	require.NoError(t, err)

	// A write next to the config file must not trigger a reload.
	other := DefaultConfig()
	require.NoError(t, other.Save(path+".bak"))

	select {
	case <-reloaded:
		t.Fatal("sibling file write triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, w.Close())
}

func TestWatchFailsWithoutDirectory(t *testing.T) {
	_, err := Watch("/does/not/exist/config.yaml", nil)
	assert.Error(t, err)
}
