package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/application"
	"telegram-gather/internal/infra/anthropic"
)

func TestClaudeClient_Enhance(t *testing.T) {
	var got map[string]any
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		response := map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": "Я сегодня пошёл в магазин."},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "claude-test", server.URL, nil)

	raw := "ну типа я сегодня пошел в магазин"
	text, err := client.Enhance(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Я сегодня пошёл в магазин.", text)
	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", headers.Get("anthropic-version"))
	assert.Equal(t, "claude-test", got["model"])
	assert.Equal(t, application.EnhancementInstruction, got["system"])
	assert.EqualValues(t, application.EnhancementMaxTokens(raw), got["max_tokens"])
	assert.InDelta(t, application.EnhancementTemperature, got["temperature"], 1e-9)
}

func TestClaudeClient_EnhanceAPIError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"type":"error","error":{"type":"overloaded_error"}}`, 529)
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "", server.URL, nil)

	_, err := client.Enhance(context.Background(), "ну вот такое сообщение")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "529")
	assert.Equal(t, 1, calls)
}

func TestClaudeClient_EnhanceEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	client := anthropic.NewClaudeClientWithURL("test-key", "", server.URL, nil)

	_, err := client.Enhance(context.Background(), "ну вот такое сообщение")
	assert.ErrorContains(t, err, "empty response")
}
