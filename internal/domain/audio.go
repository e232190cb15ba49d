package domain

import (
	"path/filepath"
	"strings"
)

type AudioFormat string

const (
	FormatOGG AudioFormat = "ogg"
	FormatMP3 AudioFormat = "mp3"
	FormatWAV AudioFormat = "wav"
	FormatM4A AudioFormat = "m4a"
)

var supportedFormats = map[AudioFormat]bool{
	FormatOGG: true,
	FormatMP3: true,
	FormatWAV: true,
	FormatM4A: true,
}

var mimeFormats = map[string]AudioFormat{
	"audio/ogg":   FormatOGG,
	"audio/opus":  FormatOGG,
	"audio/mpeg":  FormatMP3,
	"audio/mp3":   FormatMP3,
	"audio/wav":   FormatWAV,
	"audio/x-wav": FormatWAV,
	"audio/wave":  FormatWAV,
	"audio/mp4":   FormatM4A,
	"audio/m4a":   FormatM4A,
	"audio/x-m4a": FormatM4A,
}

func (f AudioFormat) Supported() bool {
	return supportedFormats[f]
}

var formatMimes = map[AudioFormat]string{
	FormatOGG: "audio/ogg",
	FormatMP3: "audio/mpeg",
	FormatWAV: "audio/wav",
	FormatM4A: "audio/mp4",
}

// MimeType is the canonical content type sent along with the upload.
func (f AudioFormat) MimeType() string {
	if m, ok := formatMimes[f]; ok {
		return m
	}
	return "application/octet-stream"
}

// Extension returns the file extension including the leading dot.
func (f AudioFormat) Extension() string {
	return "." + string(f)
}

// ResolveFormat determines the audio format of an attachment. Voice notes are
// always OGG/Opus. A known MIME type wins; the file name extension is used
// only when the MIME type is missing or unknown. The returned format may be
// unsupported; callers check Supported.
func ResolveFormat(m *Media) AudioFormat {
	if m == nil {
		return ""
	}
	if m.Kind == MediaKindVoice {
		return FormatOGG
	}
	mime := strings.ToLower(strings.TrimSpace(m.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if f, ok := mimeFormats[mime]; ok {
		return f
	}
	return AudioFormat(strings.TrimPrefix(strings.ToLower(filepath.Ext(m.FileName)), "."))
}

// IsAudio reports whether the attachment carries audio content at all.
func (m *Media) IsAudio() bool {
	if m == nil {
		return false
	}
	switch m.Kind {
	case MediaKindVoice, MediaKindAudio:
		return true
	case MediaKindDocument:
		return strings.HasPrefix(strings.ToLower(m.MimeType), "audio/")
	default:
		return false
	}
}
