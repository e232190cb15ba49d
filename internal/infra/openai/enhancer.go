package openai

import (
	"context"
	"errors"

	openaisdk "github.com/openai/openai-go/v3"

	"telegram-gather/internal/application"
)

const DefaultEnhanceModel = "gpt-4o-mini"

type Enhancer struct {
	client openaisdk.Client
	model  string
}

func NewEnhancer(client openaisdk.Client, model string) *Enhancer {
	if model == "" {
		model = DefaultEnhanceModel
	}
	return &Enhancer{client: client, model: model}
}

func (e *Enhancer) Enhance(ctx context.Context, raw string) (string, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(application.EnhancementInstruction),
			openaisdk.UserMessage(raw),
		},
		Model:       openaisdk.ChatModel(e.model),
		Temperature: openaisdk.Float(application.EnhancementTemperature),
		MaxTokens:   openaisdk.Int(int64(application.EnhancementMaxTokens(raw))),
	})
	if err != nil {
		return "", describe("enhancing transcript", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("enhancing transcript: no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}
