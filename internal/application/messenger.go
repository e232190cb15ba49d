package application

import (
	"context"
	"io"

	"telegram-gather/internal/domain"
)

type MediaDownloader interface {
	Download(ctx context.Context, msg *domain.IncomingAudioMessage, dst io.Writer) error
}

type Replier interface {
	Reply(ctx context.Context, msg *domain.IncomingAudioMessage, text string) error
}

// Messenger is the messaging platform as seen by the pipeline.
type Messenger interface {
	MediaDownloader
	Replier
}
