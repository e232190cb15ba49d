package telegram_test

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/infra/telegram"
)

const sessionJSON = `{"Version":1,"Data":{"DC":2,"Addr":"149.154.167.50:443","AuthKey":"c2VjcmV0"}}`

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.session")
	require.NoError(t, os.WriteFile(src, []byte(sessionJSON), 0o600))

	encoded, err := telegram.ExportSession(src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "nested", "dst.session")
	written, err := telegram.RestoreSession(dst, encoded)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, sessionJSON, string(data))
}

func TestRestoreSession_Uncompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.session")
	encoded := base64.StdEncoding.EncodeToString([]byte(sessionJSON))

	// Wrapped the way it often ends up in deployment dashboards.
	written, err := telegram.RestoreSession(path, encoded[:20]+"\n"+encoded[20:])
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sessionJSON, string(data))
}

func TestRestoreSession_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.session")
	require.NoError(t, os.WriteFile(path, []byte("current"), 0o600))

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte("stale"))
	zw.Close()

	written, err := telegram.RestoreSession(path, base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data))
}

func TestRestoreSession_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.session")

	written, err := telegram.RestoreSession(path, "")
	require.NoError(t, err)
	assert.False(t, written)

	_, err = telegram.RestoreSession(path, "%%% not base64 %%%")
	assert.Error(t, err)
	assert.NoFileExists(t, path)

	_, err = telegram.ExportSession(filepath.Join(t.TempDir(), "missing.session"))
	assert.Error(t, err)
}
