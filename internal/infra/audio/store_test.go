package audio_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/domain"
	"telegram-gather/internal/infra/audio"
)

func newStore(t *testing.T) *audio.TempStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return audio.NewTempStore(filepath.Join(t.TempDir(), "scratch"), logger)
}

func TestTempStore_CreateUniqueFiles(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Prepare(0))

	a, err := store.Create(domain.FormatOGG)
	require.NoError(t, err)
	defer a.Close()
	b, err := store.Create(domain.FormatOGG)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Name(), b.Name())
	assert.Equal(t, store.Dir(), filepath.Dir(a.Name()))
	assert.True(t, strings.HasPrefix(filepath.Base(a.Name()), "gather-"))
	assert.Equal(t, ".ogg", filepath.Ext(a.Name()))
}

func TestTempStore_PrepareSweepsStaleFiles(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Prepare(0))

	stale := filepath.Join(store.Dir(), "gather-old.mp3")
	fresh := filepath.Join(store.Dir(), "gather-new.mp3")
	foreign := filepath.Join(store.Dir(), "keep-me.txt")
	for _, p := range []string{stale, fresh, foreign} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	require.NoError(t, store.Prepare(time.Hour))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, foreign)
}

func TestTempStore_CreateWithoutPrepare(t *testing.T) {
	store := newStore(t)

	_, err := store.Create(domain.FormatWAV)
	assert.Error(t, err)
}
