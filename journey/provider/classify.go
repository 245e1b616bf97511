package provider

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Classification is the Invoker's view of a failed attempt.
type Classification struct {
	// Recoverable failures move on to the next model; all others stop the chain.
	Recoverable bool
	// RetryDelay is the provider-suggested pause before the next model (0 = none).
	RetryDelay time.Duration
}

// Classifier decides whether a model failure is recoverable.
type Classifier func(err error) Classification

var (
	quotaMessage   = regexp.MustCompile(`(?i)quota|too many requests|rate[- ]?limit`)
	retryDelayHint = regexp.MustCompile(`"retryDelay":"(\d+)s"`)
)

// StatusError attaches an HTTP status code to an error from a provider without a typed error of its own.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ClassifyQuota treats HTTP 429 and quota/rate-limit messages as recoverable and everything else as fatal.
// The retry delay comes from SuggestedRetryDelay.
func ClassifyQuota(err error) Classification {
	if !IsQuotaError(err) {
		return Classification{}
	}
	return Classification{Recoverable: true, RetryDelay: SuggestedRetryDelay(err)}
}

// IsQuotaError reports whether err signals HTTP 429 or quota/rate-limit exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCode(err); ok && code == http.StatusTooManyRequests {
		return true
	}
	return quotaMessage.MatchString(err.Error())
}

// StatusCode extracts an HTTP status from provider errors in err's chain.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return ge.Code, true
	}
	var gpe *genai.APIError
	if errors.As(err, &gpe) && gpe != nil {
		return gpe.Code, true
	}
	var oe *openai.Error
	if errors.As(err, &oe) && oe != nil {
		return oe.StatusCode, true
	}
	return 0, false
}

// SuggestedRetryDelay returns the provider's suggested wait before retrying, read from a
// "retryDelay":"<N>s" fragment in the error message or from a retryDelay entry in Gemini error details.
// A missing or unparsable hint yields 0.
func SuggestedRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	if m := retryDelayHint.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			return time.Duration(n) * time.Second
		}
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return retryDelayFromDetails(ge.Details)
	}
	var gpe *genai.APIError
	if errors.As(err, &gpe) && gpe != nil {
		return retryDelayFromDetails(gpe.Details)
	}
	return 0
}

func retryDelayFromDetails(details []map[string]any) time.Duration {
	for _, d := range details {
		s, ok := d["retryDelay"].(string)
		if !ok {
			continue
		}
		if dur, err := time.ParseDuration(s); err == nil && dur > 0 {
			return dur
		}
	}
	return 0
}
