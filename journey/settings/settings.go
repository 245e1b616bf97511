// Package settings loads the optional YAML config file and .env shared by the journey binaries.
package settings

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
)

// PrimaryModelEnv overrides the provider's default primary model.
const PrimaryModelEnv = "JOURNEY_MODEL_PRIMARY"

// File is the YAML config file. Zero values leave the binary's defaults in place.
type File struct {
	Provider        string                   `yaml:"provider"`
	PrimaryModel    string                   `yaml:"primary_model"`
	FallbackModels  []string                 `yaml:"fallback_models"`
	MaxOutputTokens int                      `yaml:"max_output_tokens"`
	Compaction      journey.CompactionConfig `yaml:"compaction"`
	MemberName      string                   `yaml:"member_name"`
	Timezone        string                   `yaml:"timezone"`

	Listen         string        `yaml:"listen"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads a YAML config file. Unknown keys are an error.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// LoadDotEnv loads .env files into the process environment without overriding variables that are
// already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func ExplicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// ModelOrder resolves the models to try for providerName. The primary model comes from primary,
// then getenv(PrimaryModelEnv), then the provider default; nil fallbacks mean the provider defaults.
func ModelOrder(providerName, primary string, fallbacks []string, getenv func(string) string) ([]string, error) {
	if primary == "" && getenv != nil {
		primary = strings.TrimSpace(getenv(PrimaryModelEnv))
	}
	if primary == "" {
		primary = provider.DefaultPrimaryModel(providerName)
	}
	if fallbacks == nil {
		fallbacks = provider.DefaultFallbackModels(providerName)
	}
	order := provider.ModelOrder(primary, fallbacks)
	if len(order) == 0 {
		return nil, errors.New("no models configured")
	}
	return order, nil
}

// SplitList splits a comma separated flag value, dropping blanks. An empty value yields nil.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
