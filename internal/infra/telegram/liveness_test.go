package telegram

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClient_ConnectionTransitions(t *testing.T) {
	var disconnects, reconnects int
	c := &Client{
		opts: Options{
			OnDisconnect: func() { disconnects++ },
			OnReconnect:  func() { reconnects++ },
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	c.markAlive()
	assert.Zero(t, reconnects, "no reconnect without a prior disconnect")

	c.markDead()
	c.markDead()
	assert.Equal(t, 1, disconnects)
	assert.True(t, c.down.Load())

	c.markAlive()
	c.markAlive()
	assert.Equal(t, 1, reconnects)
	assert.False(t, c.down.Load())

	c.markDead()
	assert.Equal(t, 2, disconnects)
}

func TestClient_TransitionsWithoutCallbacks(t *testing.T) {
	c := &Client{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	assert.NotPanics(t, func() {
		c.markDead()
		c.markAlive()
	})
}
