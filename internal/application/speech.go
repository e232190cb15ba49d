package application

import (
	"context"
	"io"
	"unicode/utf8"

	"telegram-gather/internal/domain"
)

// Audio is a locally materialized audio artifact that can be read more than
// once.
type Audio interface {
	Name() string
	Format() domain.AudioFormat
	Open() (io.ReadCloser, error)
}

type SpeechToText interface {
	Transcribe(ctx context.Context, audio Audio, language string) (string, error)
}

// Enhancer turns a raw transcript into a cleaned-up one.
type Enhancer interface {
	Enhance(ctx context.Context, raw string) (string, error)
}

// EnhancementInstruction is the system prompt shared by every enhancement
// provider.
const EnhancementInstruction = `You are a text editor. Clean up voice transcription:
- Remove filler words (um, uh, like, you know, э-э, ну, типа)
- Fix punctuation and capitalization
- Remove false starts and repetitions
- Split into paragraphs (blank line) only when topic clearly changes
- Keep the EXACT meaning - do not add or remove ANY information
- Keep the same language as input
- NEVER add phrases like "продолжение следует", "to be continued", or any commentary
- NEVER add anything that wasn't in the original speech
- Output ONLY the cleaned transcription text, nothing else`

const (
	EnhancementTemperature = 0.3
	minEnhanceRunes        = 10
	minEnhanceTokens       = 64
)

// EnhancementMaxTokens bounds the completion to twice the input length.
func EnhancementMaxTokens(raw string) int {
	n := 2 * utf8.RuneCountInString(raw)
	if n < minEnhanceTokens {
		return minEnhanceTokens
	}
	return n
}
