package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/settings"
)

type Config struct {
	Addr            string
	Provider        string
	Model           string
	FallbackModels  []string
	APIKey          string
	MaxOutputTokens int
	Compaction      journey.CompactionConfig

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogLevel   string
	LogFormat  string
	ConfigPath string
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("missing -addr")
	}
	if err := provider.ValidateProvider(c.Provider); err != nil {
		return err
	}
	if c.MaxOutputTokens < 0 {
		return errors.New("max-output-tokens must be >= 0")
	}
	if c.Compaction.MaxPerMessageChars < 0 || c.Compaction.MaxSerializedChars < 0 {
		return errors.New("compaction limits must be >= 0")
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Provider:        provider.Gemini,
		Compaction:      journey.DefaultCompactionConfig(),
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var fallbacks string
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model provider: gemini or openai")
	fs.StringVar(&cfg.Model, "model", "", "Primary model (default: $JOURNEY_MODEL_PRIMARY, then the provider default)")
	fs.StringVar(&fallbacks, "fallback-models", "", "Comma separated fallback models tried on quota errors (default: provider list)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "Provider API key (overrides GOOGLE_API_KEY / OPENAI_API_KEY)")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", 0, "Cap on model output tokens (0 = model default)")
	fs.IntVar(&cfg.Compaction.MaxPerMessageChars, "max-message-chars", cfg.Compaction.MaxPerMessageChars, "Per-message text cap before compaction")
	fs.IntVar(&cfg.Compaction.MaxSerializedChars, "max-serialized-chars", cfg.Compaction.MaxSerializedChars, "Budget for the serialized message payload")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Deadline for one API request, model calls included (0 disables)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for in-flight requests on shutdown")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text, json, logfmt")
	fs.StringVar(&cfg.ConfigPath, "config", "", "Optional YAML config file; explicit flags win over it")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.FallbackModels = settings.SplitList(fallbacks)

	if cfg.ConfigPath != "" {
		cfg.ConfigPath = filepath.Clean(cfg.ConfigPath)
		f, err := settings.Load(cfg.ConfigPath)
		if err != nil {
			return Config{}, err
		}
		applyFile(&cfg, f, settings.ExplicitFlags(fs))
	}
	return cfg, nil
}

// applyFile copies non-zero values from f into cfg unless the matching flag was given explicitly.
func applyFile(cfg *Config, f settings.File, explicit map[string]bool) {
	if f.Listen != "" && !explicit["addr"] {
		cfg.Addr = f.Listen
	}
	if f.Provider != "" && !explicit["provider"] {
		cfg.Provider = f.Provider
	}
	if f.PrimaryModel != "" && !explicit["model"] {
		cfg.Model = f.PrimaryModel
	}
	if f.FallbackModels != nil && !explicit["fallback-models"] {
		cfg.FallbackModels = f.FallbackModels
	}
	if f.MaxOutputTokens != 0 && !explicit["max-output-tokens"] {
		cfg.MaxOutputTokens = f.MaxOutputTokens
	}
	if f.Compaction.MaxPerMessageChars != 0 && !explicit["max-message-chars"] {
		cfg.Compaction.MaxPerMessageChars = f.Compaction.MaxPerMessageChars
	}
	if f.Compaction.MaxSerializedChars != 0 && !explicit["max-serialized-chars"] {
		cfg.Compaction.MaxSerializedChars = f.Compaction.MaxSerializedChars
	}
	if f.RequestTimeout != 0 && !explicit["request-timeout"] {
		cfg.RequestTimeout = f.RequestTimeout
	}
	if f.LogLevel != "" && !explicit["log-level"] {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" && !explicit["log-format"] {
		cfg.LogFormat = f.LogFormat
	}
}
