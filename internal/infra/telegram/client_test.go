package telegram_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/infra/telegram"
)

func TestIsSessionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not authorized", fmt.Errorf("run: %w", telegram.ErrNotAuthorized), true},
		{"revoked", tgerr.New(401, "SESSION_REVOKED"), true},
		{"unregistered key", fmt.Errorf("call: %w", tgerr.New(401, "AUTH_KEY_UNREGISTERED")), true},
		{"banned", tgerr.New(403, "USER_DEACTIVATED_BAN"), true},
		{"flood wait", tgerr.New(420, "FLOOD_WAIT_30"), false},
		{"network", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, telegram.IsSessionError(tt.err))
		})
	}
}

func TestErrorType(t *testing.T) {
	name, ok := telegram.ErrorType(fmt.Errorf("run: %w", tgerr.New(401, "AUTH_KEY_UNREGISTERED")))
	assert.True(t, ok)
	assert.Equal(t, "AUTH_KEY_UNREGISTERED", name)

	_, ok = telegram.ErrorType(errors.New("connection reset by peer"))
	assert.False(t, ok)
}

func TestTerminalPrompter(t *testing.T) {
	var out strings.Builder
	p := telegram.NewTerminalPrompter(strings.NewReader(" 12345 \nhunter2"), &out)

	code, err := p.Code(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	password, err := p.Password(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	assert.Contains(t, out.String(), "code")
	assert.Contains(t, out.String(), "2FA")

	_, err = p.Code(context.Background())
	assert.Error(t, err)
}
