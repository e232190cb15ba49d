// Command gather-session logs in interactively and prints the session in the
// form TELEGRAM_SESSION_BASE64 expects.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"telegram-gather/config"
	"telegram-gather/internal/infra/proxy"
	"telegram-gather/internal/infra/telegram"
	"telegram-gather/internal/logging"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to an optional YAML config file")
	envFile := flag.StringP("env", "e", ".env", "env file to load before reading the environment")
	logLevel := flag.StringP("log-level", "l", "warn", "log level")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading env file", "path", *envFile, "error", err)
	}

	cfg, err := config.LoadTelegram(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	cfg.Log.Level = *logLevel

	// stdout carries only the session value.
	logger := logging.New(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("session export failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts := telegram.Options{
		AppID:       cfg.Telegram.AppID,
		AppHash:     cfg.Telegram.AppHash,
		Phone:       cfg.Telegram.Phone,
		Password:    cfg.Telegram.Password,
		SessionPath: cfg.Telegram.SessionPath(),
		Prompter:    telegram.NewTerminalPrompter(os.Stdin, os.Stderr),
	}
	if cfg.Proxy.SOCKS != "" {
		dial, err := proxy.NewDialer(cfg.Proxy.SOCKS)
		if err != nil {
			return fmt.Errorf("setting up proxy: %w", err)
		}
		opts.Dial = dial
	}

	self, err := telegram.NewClient(opts, logger).Login(ctx)
	if err != nil {
		return err
	}

	encoded, err := telegram.ExportSession(opts.SessionPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s %s (@%s). Session file: %s\n",
		self.FirstName, self.LastName, self.Username, opts.SessionPath)
	fmt.Fprintf(os.Stderr, "Set TELEGRAM_SESSION_BASE64 to the value below (%d characters):\n\n", len(encoded))
	fmt.Println(encoded)
	return nil
}
