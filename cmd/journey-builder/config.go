package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/settings"
)

const (
	modeJourney = "journey"
	modeWeekly  = "weekly"
	modeBoth    = "both"
)

type Config struct {
	InPath    string
	OutDir    string
	From      string
	To        string
	Mode      string
	Pretty    bool
	Overwrite bool

	Provider        string
	Model           string
	FallbackModels  []string
	APIKey          string
	MaxOutputTokens int
	Compaction      journey.CompactionConfig

	MemberName        string
	Timezone          string
	PriorTimelinePath string

	LogLevel   string
	ConfigPath string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.OutDir == "" {
		return errors.New("missing -out")
	}
	switch c.Mode {
	case modeJourney, modeWeekly, modeBoth:
	default:
		return fmt.Errorf("mode must be %s, %s or %s", modeJourney, modeWeekly, modeBoth)
	}
	if err := provider.ValidateProvider(c.Provider); err != nil {
		return err
	}
	if (c.From == "") != (c.To == "") {
		return errors.New("-from and -to must be given together")
	}
	for _, d := range []string{c.From, c.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("date %q: want YYYY-MM-DD", d)
		}
	}
	if c.From > c.To {
		return errors.New("-from must not be after -to")
	}
	if c.MaxOutputTokens < 0 {
		return errors.New("max-output-tokens must be >= 0")
	}
	if c.Compaction.MaxPerMessageChars < 0 || c.Compaction.MaxSerializedChars < 0 {
		return errors.New("compaction limits must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutDir:     "out",
		Mode:       modeBoth,
		Provider:   provider.Gemini,
		Compaction: journey.DefaultCompactionConfig(),
		MemberName: journey.DefaultMemberName,
		Timezone:   journey.DefaultTimezone,
		LogLevel:   "info",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var fallbacks string
	fs.StringVar(&cfg.InPath, "in", "", "Path to the chat export CSV (timestamp,sender,message)")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Output directory for journey.json, weekly.md, weekly.html and run.json")
	fs.StringVar(&cfg.From, "from", "", "First date to include (YYYY-MM-DD, requires -to)")
	fs.StringVar(&cfg.To, "to", "", "Last date to include (YYYY-MM-DD, requires -from)")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "What to build: journey, weekly or both")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print JSON outputs")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model provider: gemini or openai")
	fs.StringVar(&cfg.Model, "model", "", "Primary model (default: $JOURNEY_MODEL_PRIMARY, then the provider default)")
	fs.StringVar(&fallbacks, "fallback-models", "", "Comma separated fallback models tried on quota errors (default: provider list)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "Provider API key (overrides GOOGLE_API_KEY / OPENAI_API_KEY)")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", 0, "Cap on model output tokens (0 = model default)")
	fs.IntVar(&cfg.Compaction.MaxPerMessageChars, "max-message-chars", cfg.Compaction.MaxPerMessageChars, "Per-message text cap before compaction")
	fs.IntVar(&cfg.Compaction.MaxSerializedChars, "max-serialized-chars", cfg.Compaction.MaxSerializedChars, "Budget for the serialized message payload")
	fs.StringVar(&cfg.MemberName, "member", cfg.MemberName, "Member name used in the journey prompt")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "Member timezone used in the journey prompt")
	fs.StringVar(&cfg.PriorTimelinePath, "prior-timeline", "", "Optional JSON file with a prior journey timeline for the weekly summary")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
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

	if cfg.InPath != "" {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	cfg.OutDir = filepath.Clean(cfg.OutDir)
	if cfg.PriorTimelinePath != "" {
		cfg.PriorTimelinePath = filepath.Clean(cfg.PriorTimelinePath)
	}
	return cfg, nil
}

// applyFile copies non-zero values from f into cfg unless the matching flag was given explicitly.
func applyFile(cfg *Config, f settings.File, explicit map[string]bool) {
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
	if f.MemberName != "" && !explicit["member"] {
		cfg.MemberName = f.MemberName
	}
	if f.Timezone != "" && !explicit["timezone"] {
		cfg.Timezone = f.Timezone
	}
	if f.LogLevel != "" && !explicit["log-level"] {
		cfg.LogLevel = f.LogLevel
	}
}
