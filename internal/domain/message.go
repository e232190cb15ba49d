package domain

import "time"

type ChatKind string

const (
	ChatKindPrivate ChatKind = "private"
	ChatKindGroup   ChatKind = "group"
	ChatKindChannel ChatKind = "channel"
)

type MediaKind string

const (
	MediaKindVoice    MediaKind = "voice"
	MediaKindAudio    MediaKind = "audio"
	MediaKindVideo    MediaKind = "video"
	MediaKindDocument MediaKind = "document"
)

// Media describes an attachment as declared by the sender. Nothing here has
// been downloaded yet.
type Media struct {
	Kind     MediaKind
	MimeType string
	FileName string
	Size     int64
	Duration time.Duration
}

// IncomingAudioMessage is a single inbound message event. It lives for one
// pipeline run.
type IncomingAudioMessage struct {
	ChatID     int64
	ChatKind   ChatKind
	MessageID  int
	SenderID   int64
	SenderName string
	// Outgoing is set when the message was sent by the agent's own account.
	Outgoing bool
	Media    *Media

	// Transport carries messenger-specific data needed to download the media
	// and address the reply. The pipeline never inspects it.
	Transport any
}

func (m *IncomingAudioMessage) IsPrivate() bool {
	return m.ChatKind == ChatKindPrivate
}
