package pushover_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/infra/pushover"
)

func TestClient_Notify(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Write([]byte(`{"status":1}`))
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("tok", "usr", server.URL, nil)
	require.NoError(t, client.Notify(context.Background(), "<b>Started</b>"))

	assert.Equal(t, "tok", form.Get("token"))
	assert.Equal(t, "usr", form.Get("user"))
	assert.Equal(t, "<b>Started</b>", form.Get("message"))
	assert.Equal(t, "1", form.Get("html"))
	assert.Equal(t, "Telegram Gather", form.Get("title"))
}

func TestClient_NotifyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":0}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("tok", "usr", server.URL, nil)
	assert.ErrorContains(t, client.Notify(context.Background(), "hi"), "400")
}

func TestClient_NotifyWithoutCredentials(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := pushover.NewClientWithURL("", "", server.URL, nil)
	require.NoError(t, client.Notify(context.Background(), "hi"))
	assert.False(t, called)
}
