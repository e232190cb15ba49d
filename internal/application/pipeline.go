package application

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"telegram-gather/internal/domain"
)

type PipelineConfig struct {
	Language         string
	Enhance          bool
	ReplyAttribution bool
	// StageTimeout bounds every blocking stage. Zero disables the bound.
	StageTimeout time.Duration
}

// Pipeline turns one inbound voice message into a text reply.
type Pipeline struct {
	cfg      PipelineConfig
	intake   *MediaIntake
	stt      SpeechToText
	enhancer Enhancer
	replier  Replier
	metrics  Recorder
	logger   *slog.Logger
}

func NewPipeline(
	cfg PipelineConfig,
	intake *MediaIntake,
	stt SpeechToText,
	enhancer Enhancer,
	replier Replier,
	metrics Recorder,
	logger *slog.Logger,
) *Pipeline {
	if metrics == nil {
		metrics = NoopRecorder{}
	}
	return &Pipeline{
		cfg:      cfg,
		intake:   intake,
		stt:      stt,
		enhancer: enhancer,
		replier:  replier,
		metrics:  metrics,
		logger:   logger,
	}
}

func (p *Pipeline) Handle(ctx context.Context, msg *domain.IncomingAudioMessage) (outcome Outcome) {
	if !p.intake.Qualifies(msg) {
		if msg != nil {
			p.logger.Debug("skipping message", "chat_id", msg.ChatID, "chat_kind", msg.ChatKind, "message_id", msg.MessageID)
		}
		return OutcomeFiltered
	}

	logger := p.logger.With(
		"run_id", uuid.NewString(),
		"chat_id", msg.ChatID,
		"message_id", msg.MessageID,
	)

	start := time.Now()
	p.metrics.RunStarted()

	logger.Info("processing voice message",
		"kind", msg.Media.Kind,
		"mime", msg.Media.MimeType,
		"size", msg.Media.Size,
		"duration", msg.Media.Duration,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("voice message run panicked", "panic", r, "stack", string(debug.Stack()))
			outcome = OutcomePanicked
		}

		elapsed := time.Since(start)
		p.metrics.RunFinished(outcome, elapsed)
		logger.Info("voice message done", "outcome", outcome, "elapsed", elapsed)
	}()

	return p.run(ctx, msg, logger)
}

func (p *Pipeline) run(ctx context.Context, msg *domain.IncomingAudioMessage, logger *slog.Logger) Outcome {
	var src *ByteSource
	err := p.stage(ctx, StageIntake, func(ctx context.Context) error {
		var err error
		src, err = p.intake.Materialize(ctx, msg)
		return err
	})
	if err != nil {
		logger.Error("downloading voice message", "error", fmt.Errorf("%w: %w", domain.ErrIntake, err))
		p.sendNotice(ctx, msg, domain.ReplyDownloadFailed, logger)
		return OutcomeIntakeFailed
	}
	defer func() {
		if err := src.Release(); err != nil {
			logger.Warn("releasing temp audio", "path", src.Path(), "error", err)
		}
	}()

	result := domain.TranscriptResult{Language: p.cfg.Language}

	err = p.stage(ctx, StageTranscribe, func(ctx context.Context) error {
		text, err := p.stt.Transcribe(ctx, src, p.cfg.Language)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return domain.ErrEmptyTranscript
		}
		result.Raw = text
		return nil
	})
	if err != nil {
		logger.Error("transcribing voice message", "error", fmt.Errorf("%w: %w", domain.ErrTranscription, err))
		p.sendNotice(ctx, msg, domain.ReplyTranscriptionFailed, logger)
		return OutcomeTranscriptionFailed
	}
	logger.Debug("transcribed", "chars", utf8.RuneCountInString(result.Raw))

	if p.shouldEnhance(result.Raw) {
		err = p.stage(ctx, StageEnhance, func(ctx context.Context) error {
			text, err := p.enhancer.Enhance(ctx, result.Raw)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return fmt.Errorf("enhancer returned empty text")
			}
			result.Polished = text
			return nil
		})
		if err != nil {
			logger.Warn("enhancement failed, replying with raw transcript",
				"error", fmt.Errorf("%w: %w", domain.ErrEnhancement, err))
		} else {
			logger.Debug("enhanced",
				"raw_chars", utf8.RuneCountInString(result.Raw),
				"polished_chars", utf8.RuneCountInString(result.Polished))
		}
	}

	text := p.format(msg, result)

	err = p.stage(ctx, StageReply, func(ctx context.Context) error {
		return p.replier.Reply(ctx, msg, text)
	})
	if err != nil {
		logger.Error("sending transcript", "error", fmt.Errorf("%w: %w", domain.ErrReplyDelivery, err))
		return OutcomeReplyFailed
	}

	if result.Enhanced() {
		return OutcomeRepliedEnhanced
	}
	return OutcomeRepliedRaw
}

func (p *Pipeline) shouldEnhance(raw string) bool {
	return p.cfg.Enhance && p.enhancer != nil && utf8.RuneCountInString(raw) >= minEnhanceRunes
}

func (p *Pipeline) format(msg *domain.IncomingAudioMessage, result domain.TranscriptResult) string {
	text := result.Text()
	if !p.cfg.ReplyAttribution {
		return text
	}
	name := msg.SenderName
	if name == "" {
		name = "собеседника"
	}
	return fmt.Sprintf("📄 Сообщение от %s:\n%s", name, text)
}

// sendNotice tells the user that processing failed. A failure here is only
// logged since the reply channel itself is broken.
func (p *Pipeline) sendNotice(ctx context.Context, msg *domain.IncomingAudioMessage, text string, logger *slog.Logger) {
	err := p.stage(ctx, StageReply, func(ctx context.Context) error {
		return p.replier.Reply(ctx, msg, text)
	})
	if err != nil {
		logger.Error("sending error notice", "error", fmt.Errorf("%w: %w", domain.ErrReplyDelivery, err))
	}
}

func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStage(stage, time.Since(start), err)
	return err
}
