package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"

	"telegram-gather/internal/application"
	"telegram-gather/internal/domain"
)

// MaxMessageLength is the Telegram limit for a single text message.
const MaxMessageLength = 4096

var _ application.Messenger = (*Messenger)(nil)

var errNoTransport = errors.New("message was not received from telegram")

// Messenger downloads attachments and sends replies over the user session.
type Messenger struct {
	api        *tg.Client
	sender     *message.Sender
	downloader *downloader.Downloader
	logger     *slog.Logger
}

func NewMessenger(api *tg.Client, logger *slog.Logger) *Messenger {
	return &Messenger{
		api:        api,
		sender:     message.NewSender(api),
		downloader: downloader.NewDownloader(),
		logger:     logger,
	}
}

func (m *Messenger) Download(ctx context.Context, msg *domain.IncomingAudioMessage, dst io.Writer) error {
	env, ok := msg.Transport.(*envelope)
	if !ok || env.document == nil {
		return errNoTransport
	}

	if _, err := m.downloader.Download(m.api, env.document.AsInputDocumentFileLocation()).Stream(ctx, dst); err != nil {
		return fmt.Errorf("downloading document %d: %w", env.document.ID, err)
	}
	return nil
}

// Reply sends text as a reply to msg. Text longer than one message is split
// on whitespace; only the first part quotes the original message.
func (m *Messenger) Reply(ctx context.Context, msg *domain.IncomingAudioMessage, text string) error {
	env, ok := msg.Transport.(*envelope)
	if !ok || env.peer == nil {
		return errNoTransport
	}

	parts := splitText(text, MaxMessageLength)
	for i, part := range parts {
		req := m.sender.To(env.peer)

		var err error
		if i == 0 {
			_, err = req.Reply(msg.MessageID).Text(ctx, part)
		} else {
			_, err = req.Text(ctx, part)
		}
		if err != nil {
			return fmt.Errorf("sending part %d/%d: %w", i+1, len(parts), err)
		}
	}

	if len(parts) > 1 {
		m.logger.Debug("reply split", "chat_id", msg.ChatID, "parts", len(parts))
	}
	return nil
}

// splitText cuts s into chunks of at most limit UTF-16 code units, which is
// how Telegram measures message length. It prefers to break after a
// newline, then after any whitespace.
func splitText(s string, limit int) []string {
	runes := []rune(s)
	if fitUTF16(runes, limit) == len(runes) {
		return []string{s}
	}

	var parts []string
	for {
		n := fitUTF16(runes, limit)
		if n == len(runes) {
			break
		}
		cut := breakPoint(runes[:n])
		part := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
		if part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if rest := strings.TrimRightFunc(string(runes), unicode.IsSpace); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// fitUTF16 returns how many leading runes fit into limit UTF-16 code units.
// It always returns at least one rune of a non-empty slice.
func fitUTF16(runes []rune, limit int) int {
	units := 0
	for i, r := range runes {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if units+w > limit {
			return max(i, 1)
		}
		units += w
	}
	return len(runes)
}

func breakPoint(window []rune) int {
	for i := len(window) - 1; i > len(window)/2; i-- {
		if window[i] == '\n' {
			return i + 1
		}
	}
	for i := len(window) - 1; i > 0; i-- {
		if unicode.IsSpace(window[i]) {
			return i + 1
		}
	}
	return len(window)
}
