package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrExhaustedFallback is matched (errors.Is) by every error returned when all models hit quota limits.
var ErrExhaustedFallback = errors.New("all models exhausted by quota or rate limits")

// Caller performs one generation call against a single model.
type Caller func(ctx context.Context, model, prompt string) (string, error)

// Result is a successful generation and the model that produced it.
type Result struct {
	Text      string
	ModelUsed string
}

// ExhaustedFallbackError is returned when every model in the order failed with a recoverable error.
// It unwraps to the last recoverable failure.
type ExhaustedFallbackError struct {
	Models []string
	Last   error
}

func (e *ExhaustedFallbackError) Error() string {
	return fmt.Sprintf("%s (tried %s): %v", ErrExhaustedFallback.Error(), strings.Join(e.Models, ", "), e.Last)
}

func (e *ExhaustedFallbackError) Unwrap() error { return e.Last }

func (e *ExhaustedFallbackError) Is(target error) bool { return target == ErrExhaustedFallback }

// Invoker tries a prompt against an ordered list of models. Quota and rate-limit failures move on to the
// next model (after the provider-suggested delay, if any); any other failure is returned unchanged and
// stops the chain. An Invoker holds no per-call state and is safe for concurrent use.
type Invoker struct {
	models   []string
	classify Classifier
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithClassifier replaces ClassifyQuota.
func WithClassifier(c Classifier) InvokerOption {
	return func(inv *Invoker) {
		if c != nil {
			inv.classify = c
		}
	}
}

// WithLogger sets the logger used for fallback events.
func WithLogger(l *slog.Logger) InvokerOption {
	return func(inv *Invoker) {
		if l != nil {
			inv.logger = l
		}
	}
}

// NewInvoker returns an Invoker over models, tried in order. At least one model is required.
func NewInvoker(models []string, opts ...InvokerOption) (*Invoker, error) {
	if len(models) == 0 {
		return nil, errors.New("NewInvoker: model order is empty")
	}
	for i, m := range models {
		if strings.TrimSpace(m) == "" {
			return nil, fmt.Errorf("NewInvoker: model %d is empty", i)
		}
	}
	inv := &Invoker{
		models:   append([]string(nil), models...),
		classify: ClassifyQuota,
		logger:   slog.New(slog.DiscardHandler),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// Models returns a copy of the model order.
func (inv *Invoker) Models() []string {
	return append([]string(nil), inv.models...)
}

// Invoke runs prompt through the model order with call. Attempts are strictly sequential; once a model
// succeeds no other model is tried. Cancelling ctx stops the chain before the next attempt or during a
// backoff wait and returns ctx.Err().
func (inv *Invoker) Invoke(ctx context.Context, prompt string, call Caller) (Result, error) {
	if call == nil {
		return Result{}, errors.New("Invoke: caller is nil")
	}

	var lastErr error
	var tried []string
	for i, model := range inv.models {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		text, err := call(ctx, model, prompt)
		if err == nil {
			inv.logger.Info("model call succeeded", "model", model, "attempt", i+1)
			return Result{Text: text, ModelUsed: model}, nil
		}
		c := inv.classify(err)
		if !c.Recoverable {
			return Result{}, err
		}

		lastErr = err
		tried = append(tried, model)
		if i == len(inv.models)-1 {
			break
		}
		inv.logger.Warn("model quota exhausted, falling back",
			"model", model, "next", inv.models[i+1], "retry_delay", c.RetryDelay, "error", err)
		if c.RetryDelay > 0 {
			if err := inv.sleep(ctx, c.RetryDelay); err != nil {
				return Result{}, err
			}
		}
	}

	if lastErr == nil {
		return Result{}, ErrExhaustedFallback
	}
	inv.logger.Warn("all models exhausted", "models", strings.Join(tried, ","), "error", lastErr)
	return Result{}, &ExhaustedFallbackError{Models: tried, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
