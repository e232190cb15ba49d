package openai

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"

	"telegram-gather/internal/application"
)

const DefaultTranscriptionModel = "whisper-1"

type Transcriber struct {
	client openaisdk.Client
	model  string
}

func NewTranscriber(client openaisdk.Client, model string) *Transcriber {
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &Transcriber{client: client, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio application.Audio, language string) (string, error) {
	rc, err := audio.Open()
	if err != nil {
		return "", fmt.Errorf("opening audio: %w", err)
	}
	defer rc.Close()

	params := openaisdk.AudioTranscriptionNewParams{
		File:  openaisdk.File(rc, audio.Name(), audio.Format().MimeType()),
		Model: openaisdk.AudioModel(t.model),
	}
	if language != "" {
		params.Language = openaisdk.String(language)
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", describe("transcribing audio", err)
	}

	return resp.Text, nil
}
