package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"telegram-gather/internal/domain"
)

// envelope is the transport data the messenger needs to download the media
// and address the reply.
type envelope struct {
	peer     tg.InputPeerClass
	document *tg.Document
}

// convertMessage maps an MTProto message to the domain event. Service
// messages and messages from unknown peers report false.
func convertMessage(msg *tg.Message, e tg.Entities) (*domain.IncomingAudioMessage, bool) {
	if msg == nil {
		return nil, false
	}

	out := &domain.IncomingAudioMessage{
		MessageID: msg.ID,
		Outgoing:  msg.Out,
	}
	env := &envelope{}

	switch p := msg.PeerID.(type) {
	case *tg.PeerUser:
		out.ChatID = p.UserID
		out.ChatKind = domain.ChatKindPrivate
		out.SenderID = p.UserID
		user, ok := e.Users[p.UserID]
		if !ok {
			return nil, false
		}
		out.SenderName = displayName(user)
		env.peer = &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}
	case *tg.PeerChat:
		out.ChatID = p.ChatID
		out.ChatKind = domain.ChatKindGroup
		env.peer = &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerChannel:
		out.ChatID = p.ChannelID
		out.ChatKind = domain.ChatKindChannel
		if ch, ok := e.Channels[p.ChannelID]; ok {
			if ch.Megagroup {
				out.ChatKind = domain.ChatKindGroup
			}
			env.peer = &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
		}
	default:
		return nil, false
	}

	if from, ok := msg.GetFromID(); ok {
		if u, ok := from.(*tg.PeerUser); ok {
			out.SenderID = u.UserID
		}
	}

	out.Media, env.document = convertMedia(msg.Media)
	out.Transport = env

	return out, true
}

func convertMedia(media tg.MessageMediaClass) (*domain.Media, *tg.Document) {
	md, ok := media.(*tg.MessageMediaDocument)
	if !ok {
		return nil, nil
	}
	if md.Document == nil {
		return nil, nil
	}
	doc, ok := md.Document.AsNotEmpty()
	if !ok {
		return nil, nil
	}

	m := &domain.Media{
		Kind:     domain.MediaKindDocument,
		MimeType: doc.MimeType,
		Size:     doc.Size,
	}

	var isVideo, isAudio, isVoice bool
	for _, attr := range doc.Attributes {
		switch a := attr.(type) {
		case *tg.DocumentAttributeAudio:
			isAudio = true
			isVoice = a.Voice
			m.Duration = time.Duration(a.Duration) * time.Second
		case *tg.DocumentAttributeVideo:
			isVideo = true
		case *tg.DocumentAttributeFilename:
			m.FileName = a.FileName
		}
	}

	switch {
	case isVideo:
		m.Kind = domain.MediaKindVideo
	case isVoice:
		m.Kind = domain.MediaKindVoice
	case isAudio:
		m.Kind = domain.MediaKindAudio
	}

	return m, doc
}

func displayName(u *tg.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Username
}

// accountName is what the health alerts show for the logged in user.
func accountName(u *tg.User) string {
	if u.Username != "" {
		return u.Username
	}
	return displayName(u)
}
