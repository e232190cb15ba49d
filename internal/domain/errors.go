package domain

import "errors"

var (
	ErrIntake            = errors.New("intake failed")
	ErrTranscription     = errors.New("transcription failed")
	ErrEnhancement       = errors.New("enhancement failed")
	ErrReplyDelivery     = errors.New("reply delivery failed")
	ErrEmptyTranscript   = errors.New("empty transcript")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// User-facing replies for terminal failures.
const (
	ReplyDownloadFailed      = "⚠️ Не удалось скачать голосовое сообщение"
	ReplyTranscriptionFailed = "⚠️ Не удалось распознать речь"
)
