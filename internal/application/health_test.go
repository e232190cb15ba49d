package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/application"
)

type recordingNotifier struct {
	messages []string
	err      error
}

func (r *recordingNotifier) Notify(_ context.Context, message string) error {
	r.messages = append(r.messages, message)
	return r.err
}

func TestHealthMonitor_Lifecycle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := &recordingNotifier{}
	h := application.NewHealthMonitor(n, true, logger)

	assert.False(t, h.Status().Healthy)
	assert.True(t, h.Status().MonitoringEnabled)

	h.OnStartup(context.Background(), "anna")
	st := h.Status()
	assert.True(t, st.Healthy)
	assert.Equal(t, "anna", st.Account)
	require.NotNil(t, st.StartedAt)
	assert.Equal(t, "startup", st.LastEvent)

	h.OnSessionError(context.Background(), errors.New("AUTH_KEY_UNREGISTERED <revoked>"))
	st = h.Status()
	assert.False(t, st.Healthy)
	assert.Equal(t, 1, st.ErrorCount)

	h.OnShutdown(context.Background())
	assert.Equal(t, "shutdown", h.Status().LastEvent)

	require.Len(t, n.messages, 3)
	assert.Contains(t, n.messages[0], "Started")
	assert.Contains(t, n.messages[0], "@anna")
	assert.Contains(t, n.messages[1], "Session Error")
	assert.Contains(t, n.messages[1], "&lt;revoked&gt;")
	assert.Contains(t, n.messages[2], "Stopped")
}

func TestHealthMonitor_DisabledSendsNothing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := &recordingNotifier{}
	h := application.NewHealthMonitor(n, false, logger)

	h.OnStartup(context.Background(), "anna")
	h.OnDisconnect(context.Background())

	assert.Empty(t, n.messages)
	assert.Equal(t, "disconnect", h.Status().LastEvent)
	assert.False(t, h.Status().MonitoringEnabled)
}

func TestHealthMonitor_NotifierErrorIsSwallowed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := &recordingNotifier{err: errors.New("bot blocked")}
	h := application.NewHealthMonitor(n, true, logger)

	h.OnStartup(context.Background(), "anna")
	assert.True(t, h.Status().Healthy)
}

func TestHealthMonitor_RecoversAfterReconnect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := &recordingNotifier{}
	h := application.NewHealthMonitor(n, true, logger)

	h.OnReconnect(context.Background())
	assert.False(t, h.Status().Healthy, "reconnect before any disconnect is ignored")
	assert.Empty(t, n.messages)

	h.OnStartup(context.Background(), "anna")
	h.OnDisconnect(context.Background())
	assert.False(t, h.Status().Healthy)

	h.OnReconnect(context.Background())
	st := h.Status()
	assert.True(t, st.Healthy)
	assert.Equal(t, "reconnect", st.LastEvent)
	assert.Equal(t, "anna", st.Account)

	h.OnReconnect(context.Background())

	require.Len(t, n.messages, 3)
	assert.Contains(t, n.messages[1], "Disconnected")
	assert.Contains(t, n.messages[2], "Reconnected")
}

type authKeyError struct{}

func (authKeyError) Error() string { return "auth key unregistered" }

func TestHealthMonitor_SessionErrorNames(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wrapped := fmt.Errorf("running client: %w", fmt.Errorf("updates: %w", authKeyError{}))

	n := &recordingNotifier{}
	h := application.NewHealthMonitor(n, true, logger)
	h.OnSessionError(context.Background(), wrapped)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "<code>application_test.authKeyError</code>")
	assert.NotContains(t, n.messages[0], "wrapError")

	n = &recordingNotifier{}
	h = application.NewHealthMonitor(n, true, logger)
	h.NameErrorsWith(func(err error) (string, bool) {
		if errors.As(err, new(authKeyError)) {
			return "AUTH_KEY_UNREGISTERED", true
		}
		return "", false
	})
	h.OnSessionError(context.Background(), wrapped)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "<code>AUTH_KEY_UNREGISTERED</code>")
}
