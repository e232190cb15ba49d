package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	openaisdk "github.com/openai/openai-go/v3"
	flag "github.com/spf13/pflag"

	"telegram-gather/config"
	"telegram-gather/internal/application"
	"telegram-gather/internal/domain"
	"telegram-gather/internal/infra/anthropic"
	"telegram-gather/internal/infra/audio"
	"telegram-gather/internal/infra/gemini"
	"telegram-gather/internal/infra/httpserver"
	"telegram-gather/internal/infra/openai"
	"telegram-gather/internal/infra/proxy"
	"telegram-gather/internal/infra/pushover"
	"telegram-gather/internal/infra/telegram"
	"telegram-gather/internal/infra/telegrambot"
	"telegram-gather/internal/logging"
	"telegram-gather/internal/metrics"
)

const staleTempAge = time.Hour

func main() {
	configPath := flag.StringP("config", "c", "", "path to an optional YAML config file")
	envFile := flag.StringP("env", "e", ".env", "env file to load before reading the environment")
	logLevel := flag.StringP("log-level", "l", "", "overrides LOG_LEVEL")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := logging.New(cfg.Log, os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("telegram gather stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting telegram gather",
		"language", cfg.OpenAI.Language,
		"enhance", cfg.Enhance.Enabled,
		"enhance_provider", cfg.Enhance.Provider,
		"max_in_flight", cfg.Pipeline.MaxInFlight,
	)

	dial, err := proxy.NewDialer(cfg.Proxy.SOCKS)
	if err != nil {
		return fmt.Errorf("setting up proxy: %w", err)
	}
	httpClient := proxy.NewHTTPClient(dial, 2*time.Minute)

	healthLogger := logger.With("component", "health")
	notifier, alertsEnabled := createNotifier(cfg, httpClient, healthLogger)
	health := application.NewHealthMonitor(notifier, alertsEnabled, healthLogger)
	health.NameErrorsWith(telegram.ErrorType)

	sessionPath := cfg.Telegram.SessionPath()
	if restored, err := telegram.RestoreSession(sessionPath, cfg.Telegram.SessionBase64); err != nil {
		logger.Error("restoring session from environment", "error", err)
	} else if restored {
		logger.Info("session restored from environment", "path", sessionPath)
	}

	recorder := metrics.NewPrometheus()

	store := audio.NewTempStore(cfg.Pipeline.TempDir, logger.With("component", "tempstore"))
	if err := store.Prepare(staleTempAge); err != nil {
		return err
	}

	oai := openai.NewClient(openai.Options{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		HTTPClient: httpClient,
	})
	stt := openai.NewTranscriber(oai, cfg.OpenAI.TranscriptionModel)
	enhancer := createEnhancer(cfg.Enhance, oai, httpClient)

	tgOpts := telegram.Options{
		AppID:          cfg.Telegram.AppID,
		AppHash:        cfg.Telegram.AppHash,
		Phone:          cfg.Telegram.Phone,
		Password:       cfg.Telegram.Password,
		SessionPath:    sessionPath,
		NonInteractive: cfg.Telegram.NonInteractive,
		OnDisconnect: func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			health.OnDisconnect(alertCtx)
		},
		OnReconnect: func() {
			alertCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			health.OnReconnect(alertCtx)
		},
	}
	if !cfg.Telegram.NonInteractive {
		tgOpts.Prompter = telegram.NewTerminalPrompter(os.Stdin, os.Stdout)
	}
	if cfg.Proxy.SOCKS != "" {
		tgOpts.Dial = dial
	}
	tgClient := telegram.NewClient(tgOpts, logger.With("component", "telegram"))

	pipelineLogger := logger.With("component", "pipeline")
	intake := application.NewMediaIntake(tgClient.Messenger(), store, recorder, pipelineLogger)
	pipeline := application.NewPipeline(
		application.PipelineConfig{
			Language:         cfg.OpenAI.Language,
			Enhance:          cfg.Enhance.Enabled,
			ReplyAttribution: cfg.Pipeline.ReplyAttribution,
			StageTimeout:     cfg.Pipeline.Timeout,
		},
		intake,
		stt,
		enhancer,
		tgClient.Messenger(),
		recorder,
		pipelineLogger,
	)
	dispatcher := application.NewDispatcher(pipeline, cfg.Pipeline.MaxInFlight, pipelineLogger)

	if cfg.Status.Addr != "" {
		status := httpserver.NewStatusServer(cfg.Status.Addr, health, recorder.Handler(), logger.With("component", "status"))
		if err := status.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := status.Stop(stopCtx); err != nil {
				logger.Warn("stopping status server", "error", err)
			}
		}()
	}

	defer func() {
		alertCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		health.OnShutdown(alertCtx)
	}()

	// The session outlives ctx so that in-flight runs can still reply while
	// the dispatcher drains.
	clientCtx, stopClient := context.WithCancel(context.WithoutCancel(ctx))
	defer stopClient()

	errCh := make(chan error, 1)
	go func() {
		errCh <- tgClient.Run(clientCtx, &listener{dispatcher: dispatcher, health: health, logger: logger})
	}()

	var runErr error
	clientDone := false
	select {
	case runErr = <-errCh:
		clientDone = true
	case <-ctx.Done():
	}

	// Four stages, each bounded by the stage timeout.
	drainTimeout := 4*cfg.Pipeline.Timeout + 5*time.Second
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()

	logger.Info("waiting for in-flight messages", "timeout", drainTimeout)
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Warn("in-flight messages did not finish", "error", err)
	}

	if !clientDone {
		stopClient()
		runErr = <-errCh
	}

	if runErr == nil || errors.Is(runErr, context.Canceled) {
		return nil
	}

	alertCtx, cancelAlert := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelAlert()
	health.OnSessionError(alertCtx, runErr)

	if telegram.IsSessionError(runErr) {
		return fmt.Errorf("session invalid, run gather-session locally and update TELEGRAM_SESSION_BASE64: %w", runErr)
	}
	return runErr
}

type listener struct {
	dispatcher *application.Dispatcher
	health     *application.HealthMonitor
	logger     *slog.Logger
}

func (l *listener) OnReady(ctx context.Context, account string) {
	l.health.OnStartup(ctx, account)
}

func (l *listener) OnMessage(ctx context.Context, msg *domain.IncomingAudioMessage) {
	if err := l.dispatcher.Dispatch(ctx, msg); err != nil {
		l.logger.Warn("dropping message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}
}

func createNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (application.Notifier, bool) {
	switch {
	case cfg.Health.Enabled():
		logger.Info("health alerts via telegram bot")
		return telegrambot.NewClient(cfg.Health.BotToken, cfg.Health.AlertChatID, httpClient), true
	case cfg.Pushover.Enabled():
		logger.Info("health alerts via pushover")
		return pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, httpClient), true
	default:
		logger.Info("health alerts disabled (HEALTH_BOT_TOKEN or HEALTH_ALERT_CHAT_ID not set)")
		return &application.NoopNotifier{}, false
	}
}

func createEnhancer(cfg config.EnhanceConfig, oai openaisdk.Client, httpClient *http.Client) application.Enhancer {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClaudeClient(cfg.AnthropicAPIKey, cfg.Model, httpClient)
	case "gemini":
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.Model, httpClient)
	default:
		return openai.NewEnhancer(oai, cfg.Model)
	}
}
