package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"
)

const alertTimeFormat = "2006-01-02 15:04:05"

type HealthStatus struct {
	Healthy           bool       `json:"healthy"`
	Account           string     `json:"account,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	LastEvent         string     `json:"last_event,omitempty"`
	LastEventAt       *time.Time `json:"last_event_at,omitempty"`
	ErrorCount        int        `json:"error_count"`
	MonitoringEnabled bool       `json:"monitoring_enabled"`
}

// HealthMonitor tracks the session state and pushes alerts through a
// Notifier that does not depend on the userbot session.
type HealthMonitor struct {
	notifier  Notifier
	enabled   bool
	logger    *slog.Logger
	now       func() time.Time
	errorName func(error) (string, bool)

	mu     sync.Mutex
	status HealthStatus
}

func NewHealthMonitor(notifier Notifier, enabled bool, logger *slog.Logger) *HealthMonitor {
	if notifier == nil {
		notifier = &NoopNotifier{}
		enabled = false
	}
	return &HealthMonitor{
		notifier: notifier,
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
		status:   HealthStatus{MonitoringEnabled: enabled},
	}
}

// NameErrorsWith sets a lookup for the name shown in session error alerts,
// such as an RPC error type. Errors it does not recognize are named by their
// innermost Go type.
func (h *HealthMonitor) NameErrorsWith(fn func(error) (string, bool)) {
	h.errorName = fn
}

func (h *HealthMonitor) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *HealthMonitor) OnStartup(ctx context.Context, account string) {
	now := h.record("startup", func(s *HealthStatus, now time.Time) {
		s.Healthy = true
		s.ErrorCount = 0
		s.Account = account
		s.StartedAt = &now
	})

	h.alert(ctx, fmt.Sprintf(
		"✅ <b>Telegram Gather - Started</b>\n\n"+
			"⏰ Time: %s\n"+
			"👤 Account: @%s\n"+
			"🎤 Voice transcription is active",
		now.Format(alertTimeFormat), html.EscapeString(account),
	))
}

func (h *HealthMonitor) OnShutdown(ctx context.Context) {
	now := h.record("shutdown", func(s *HealthStatus, _ time.Time) {
		s.Healthy = false
	})

	h.alert(ctx, fmt.Sprintf(
		"🛑 <b>Telegram Gather - Stopped</b>\n\n"+
			"⏰ Time: %s\n"+
			"Service was stopped",
		now.Format(alertTimeFormat),
	))
}

func (h *HealthMonitor) OnDisconnect(ctx context.Context) {
	now := h.record("disconnect", func(s *HealthStatus, _ time.Time) {
		s.Healthy = false
	})

	h.alert(ctx, fmt.Sprintf(
		"⚠️ <b>Telegram Gather - Disconnected</b>\n\n"+
			"⏰ Time: %s\n"+
			"📡 Client disconnected from Telegram\n\n"+
			"Attempting to reconnect...",
		now.Format(alertTimeFormat),
	))
}

// OnReconnect marks the session healthy again after a disconnect. It does
// nothing unless a disconnect was recorded last.
func (h *HealthMonitor) OnReconnect(ctx context.Context) {
	h.mu.Lock()
	if h.status.LastEvent != "disconnect" {
		h.mu.Unlock()
		return
	}
	now := h.now()
	h.status.Healthy = true
	h.status.LastEvent = "reconnect"
	h.status.LastEventAt = &now
	h.mu.Unlock()

	h.alert(ctx, fmt.Sprintf(
		"🔄 <b>Telegram Gather - Reconnected</b>\n\n"+
			"⏰ Time: %s\n"+
			"📡 Connection to Telegram restored",
		now.Format(alertTimeFormat),
	))
}

func (h *HealthMonitor) OnSessionError(ctx context.Context, err error) {
	now := h.record("session_error", func(s *HealthStatus, _ time.Time) {
		s.Healthy = false
		s.ErrorCount++
	})

	h.alert(ctx, fmt.Sprintf(
		"🚨 <b>Telegram Gather - Session Error</b>\n\n"+
			"⏰ Time: %s\n"+
			"❌ Error: <code>%s</code>\n"+
			"📝 Details: %s\n\n"+
			"⚠️ <b>Action required:</b>\n"+
			"1. Re-authorize locally: <code>gather-session</code>\n"+
			"2. Update TELEGRAM_SESSION_BASE64 in the deployment\n"+
			"3. Redeploy the service",
		now.Format(alertTimeFormat),
		html.EscapeString(h.describe(err)),
		html.EscapeString(truncate(err.Error(), 200)),
	))
}

func (h *HealthMonitor) record(event string, update func(*HealthStatus, time.Time)) time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	update(&h.status, now)
	h.status.LastEvent = event
	h.status.LastEventAt = &now
	return now
}

func (h *HealthMonitor) alert(ctx context.Context, message string) {
	if !h.enabled {
		h.logger.Debug("health alerts disabled, skipping")
		return
	}
	if err := h.notifier.Notify(ctx, message); err != nil {
		h.logger.Error("sending health alert", "error", err)
		return
	}
	h.logger.Info("health alert sent")
}

func (h *HealthMonitor) describe(err error) string {
	if h.errorName != nil {
		if name, ok := h.errorName(err); ok {
			return name
		}
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
