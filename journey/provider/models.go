package provider

import (
	"fmt"
	"strings"
)

// Provider names accepted by configuration.
const (
	Gemini = "gemini"
	OpenAI = "openai"
)

var defaultPrimary = map[string]string{
	Gemini: "gemini-1.5-pro",
	OpenAI: "gpt-5-mini",
}

var defaultFallbacks = map[string][]string{
	Gemini: {"gemini-1.5-flash-002", "gemini-1.5-flash", "gemini-1.5-flash-8b"},
	OpenAI: {"gpt-5-nano"},
}

func DefaultPrimaryModel(provider string) string {
	return defaultPrimary[provider]
}

func DefaultFallbackModels(provider string) []string {
	return append([]string(nil), defaultFallbacks[provider]...)
}

// ModelOrder returns primary followed by fallbacks with blanks and repeats removed (first occurrence wins).
func ModelOrder(primary string, fallbacks []string) []string {
	all := append([]string{primary}, fallbacks...)
	seen := make(map[string]struct{}, len(all))
	out := make([]string, 0, len(all))
	for _, m := range all {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ValidateProvider reports an error for provider names this package cannot call.
func ValidateProvider(provider string) error {
	switch provider {
	case Gemini, OpenAI:
		return nil
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", provider, Gemini, OpenAI)
	}
}

func DisplayName(provider string) string {
	switch provider {
	case Gemini:
		return "Google"
	case OpenAI:
		return "OpenAI"
	default:
		return provider
	}
}

func APIKeyEnv(provider string) string {
	switch provider {
	case OpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}
