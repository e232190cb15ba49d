// Package telegrambot sends health alerts through the Telegram Bot API. It
// does not share anything with the userbot session, so alerts still go out
// when that session is broken.
package telegrambot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

type Client struct {
	token      string
	chatID     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token, chatID string, httpClient *http.Client) *Client {
	return NewClientWithURL(token, chatID, defaultBaseURL, httpClient)
}

func NewClientWithURL(token, chatID, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		token:      token,
		chatID:     chatID,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.chatID == "" {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      message,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL embeds the token; keep it out of logs.
		return fmt.Errorf("sending alert: %w", redact(err, c.token))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var result apiResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("bot API error %d: %s", resp.StatusCode, result.Description)
	}

	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "***"), err: err}
}
