package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultLanguage      = "ru"
	DefaultSessionName   = "telegram_gather"
	DefaultTranscription = "whisper-1"
	DefaultTimeout       = 60 * time.Second
)

type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Enhance  EnhanceConfig  `yaml:"enhance"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Health   HealthConfig   `yaml:"health"`
	Pushover PushoverConfig `yaml:"pushover"`
	Status   StatusConfig   `yaml:"status"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Log      LogConfig      `yaml:"log"`
}

type TelegramConfig struct {
	AppID          int    `yaml:"app_id"`
	AppHash        string `yaml:"app_hash"`
	Phone          string `yaml:"phone"`
	Password       string `yaml:"password"`
	SessionName    string `yaml:"session_name"`
	SessionDir     string `yaml:"session_dir"`
	SessionBase64  string `yaml:"session_base64"`
	NonInteractive bool   `yaml:"non_interactive"`
}

// SessionPath is where the MTProto session file lives.
func (t TelegramConfig) SessionPath() string {
	return filepath.Join(t.SessionDir, t.SessionName+".session")
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Language           string `yaml:"language"`
	TranscriptionModel string `yaml:"transcription_model"`
}

type EnhanceConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
}

type PipelineConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	MaxInFlight      int           `yaml:"max_in_flight"`
	TempDir          string        `yaml:"temp_dir"`
	ReplyAttribution bool          `yaml:"reply_attribution"`
}

type HealthConfig struct {
	BotToken    string `yaml:"bot_token"`
	AlertChatID string `yaml:"alert_chat_id"`
}

func (h HealthConfig) Enabled() bool {
	return h.BotToken != "" && h.AlertChatID != ""
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
}

func (p PushoverConfig) Enabled() bool {
	return p.Token != "" && p.UserKey != ""
}

type StatusConfig struct {
	Addr string `yaml:"addr"`
}

type ProxyConfig struct {
	SOCKS string `yaml:"socks"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Error is a configuration problem with a single field. Load joins several of
// them when more than one field is bad.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load builds the configuration from an optional YAML file and the process
// environment. Environment variables override file values. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	var cfg Config
	enhanceSet := false

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		var probe struct {
			Enhance map[string]any `yaml:"enhance"`
		}
		if err := yaml.Unmarshal([]byte(expanded), &probe); err != nil {
			return nil, &Error{Field: "file", Reason: err.Error()}
		}
		_, enhanceSet = probe.Enhance["enabled"]

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, &Error{Field: "file", Reason: err.Error()}
		}
	}

	if !enhanceSet {
		cfg.Enhance.Enabled = true
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	return &cfg, nil
}

// LoadTelegram is Load for tools that only open the Telegram session. Only
// the Telegram section is validated.
func LoadTelegram(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(cfg.Telegram.validate()...); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, &Error{Field: key, Reason: fmt.Sprintf("not a boolean: %q", v)})
			return
		}
		*dst = b
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, &Error{Field: key, Reason: fmt.Sprintf("not an integer: %q", v)})
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, &Error{Field: key, Reason: fmt.Sprintf("not a duration: %q", v)})
			return
		}
		*dst = d
	}

	integer("TELEGRAM_API_ID", &c.Telegram.AppID)
	str("TELEGRAM_API_HASH", &c.Telegram.AppHash)
	str("TELEGRAM_PHONE", &c.Telegram.Phone)
	str("TELEGRAM_PASSWORD", &c.Telegram.Password)
	str("SESSION_NAME", &c.Telegram.SessionName)
	str("SESSION_DIR", &c.Telegram.SessionDir)
	str("TELEGRAM_SESSION_BASE64", &c.Telegram.SessionBase64)
	boolean("NON_INTERACTIVE", &c.Telegram.NonInteractive)
	if v, ok := lookup("RAILWAY_ENVIRONMENT"); ok && v != "" {
		c.Telegram.NonInteractive = true
	}

	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("TRANSCRIPTION_LANGUAGE", &c.OpenAI.Language)
	str("TRANSCRIPTION_MODEL", &c.OpenAI.TranscriptionModel)

	boolean("IMPROVE_TRANSCRIPTION", &c.Enhance.Enabled)
	str("ENHANCE_PROVIDER", &c.Enhance.Provider)
	str("ENHANCE_MODEL", &c.Enhance.Model)
	str("ANTHROPIC_API_KEY", &c.Enhance.AnthropicAPIKey)
	str("GEMINI_API_KEY", &c.Enhance.GeminiAPIKey)

	duration("PIPELINE_TIMEOUT", &c.Pipeline.Timeout)
	integer("PIPELINE_MAX_IN_FLIGHT", &c.Pipeline.MaxInFlight)
	str("TEMP_DIR", &c.Pipeline.TempDir)
	boolean("REPLY_ATTRIBUTION", &c.Pipeline.ReplyAttribution)

	str("HEALTH_BOT_TOKEN", &c.Health.BotToken)
	str("HEALTH_ALERT_CHAT_ID", &c.Health.AlertChatID)
	str("PUSHOVER_TOKEN", &c.Pushover.Token)
	str("PUSHOVER_USER_KEY", &c.Pushover.UserKey)

	str("STATUS_ADDR", &c.Status.Addr)
	str("SOCKS_PROXY", &c.Proxy.SOCKS)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

func (c *Config) setDefaults() {
	c.Telegram.Phone = normalizePhone(c.Telegram.Phone)
	if c.Telegram.SessionName == "" {
		c.Telegram.SessionName = DefaultSessionName
	}
	if c.Telegram.SessionDir == "" {
		c.Telegram.SessionDir = "."
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = DefaultLanguage
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = DefaultTranscription
	}
	if c.Enhance.Provider == "" {
		c.Enhance.Provider = "openai"
	}
	c.Enhance.Provider = strings.ToLower(c.Enhance.Provider)
	if c.Pipeline.Timeout == 0 {
		c.Pipeline.Timeout = DefaultTimeout
	}
	if c.Pipeline.TempDir == "" {
		c.Pipeline.TempDir = filepath.Join(os.TempDir(), "telegram-gather")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

var (
	apiHashRe  = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
	phoneRe    = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	languageRe = regexp.MustCompile(`^[a-z]{2}$`)
)

func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func (c *Config) validate() error {
	errs := c.Telegram.validate()
	fail := func(field, reason string) {
		errs = append(errs, &Error{Field: field, Reason: reason})
	}

	if c.OpenAI.APIKey == "" {
		fail("OPENAI_API_KEY", "required")
	}

	if !languageRe.MatchString(c.OpenAI.Language) {
		fail("TRANSCRIPTION_LANGUAGE", fmt.Sprintf("must be a two-letter code, got %q", c.OpenAI.Language))
	}

	switch c.Enhance.Provider {
	case "openai":
	case "anthropic":
		if c.Enhance.Enabled && c.Enhance.AnthropicAPIKey == "" {
			fail("ANTHROPIC_API_KEY", "required when ENHANCE_PROVIDER=anthropic")
		}
	case "gemini":
		if c.Enhance.Enabled && c.Enhance.GeminiAPIKey == "" {
			fail("GEMINI_API_KEY", "required when ENHANCE_PROVIDER=gemini")
		}
	default:
		fail("ENHANCE_PROVIDER", fmt.Sprintf("unknown provider %q", c.Enhance.Provider))
	}

	if c.Pipeline.Timeout < 0 {
		fail("PIPELINE_TIMEOUT", "must not be negative")
	}
	if c.Pipeline.MaxInFlight < 0 {
		fail("PIPELINE_MAX_IN_FLIGHT", "must not be negative")
	}

	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		fail("LOG_FORMAT", fmt.Sprintf("unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

func (t TelegramConfig) validate() []error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &Error{Field: field, Reason: reason})
	}

	switch {
	case t.AppID == 0:
		fail("TELEGRAM_API_ID", "required")
	case t.AppID < 0:
		fail("TELEGRAM_API_ID", "must be positive")
	}

	switch {
	case t.AppHash == "":
		fail("TELEGRAM_API_HASH", "required")
	case !apiHashRe.MatchString(t.AppHash):
		fail("TELEGRAM_API_HASH", "must be 32 hex characters")
	}

	switch {
	case t.Phone == "":
		fail("TELEGRAM_PHONE", "required")
	case !phoneRe.MatchString(t.Phone):
		fail("TELEGRAM_PHONE", "must be in international format, e.g. +79991234567")
	}

	if strings.ContainsAny(t.SessionName, `/\`) {
		fail("SESSION_NAME", "must not contain path separators")
	}

	return errs
}
