package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-gather/internal/application"
	"telegram-gather/internal/infra/gemini"
)

func TestClient_Enhance(t *testing.T) {
	var path, key string
	var got struct {
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		GenerationConfig struct {
			MaxOutputTokens int     `json:"maxOutputTokens"`
			Temperature     float64 `json:"temperature"`
		} `json:"generationConfig"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Я сегодня "},{"text":"пошёл в магазин."}]}}]}`))
	}))
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "", server.URL, nil)

	raw := "ну типа я сегодня пошел в магазин"
	text, err := client.Enhance(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Я сегодня пошёл в магазин.", text)
	assert.Equal(t, "/models/"+gemini.DefaultModel+":generateContent", path)
	assert.Equal(t, "test-key", key)
	require.Len(t, got.SystemInstruction.Parts, 1)
	assert.Equal(t, application.EnhancementInstruction, got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, application.EnhancementMaxTokens(raw), got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, application.EnhancementTemperature, got.GenerationConfig.Temperature, 1e-9)
}

func TestClient_EnhanceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, "429"},
		{"api error", http.StatusOK, `{"error":{"message":"blocked","code":400}}`, "blocked"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL, nil)

			_, err := client.Enhance(context.Background(), "ну вот такое сообщение")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
