package telegram

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// RestoreSession writes the session file from a base64 value, which may be
// zlib compressed. An existing session file is never overwritten. It reports
// whether a file was written.
func RestoreSession(path, encoded string) (bool, error) {
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return false, nil
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking session file: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("decoding session: %w", err)
	}

	if inflated, err := inflate(data); err == nil {
		data = inflated
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("creating session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("writing session file: %w", err)
	}
	return true, nil
}

// ExportSession returns the session file as zlib compressed base64, the
// format RestoreSession accepts.
func ExportSession(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading session file: %w", err)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("compressing session: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compressing session: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compressing session: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
