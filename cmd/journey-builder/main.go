package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/fileutils"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/logging"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/markdown"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/settings"
)

const (
	journeyFile    = "journey.json"
	journeyRawFile = "journey.raw.txt"
	weeklyMDFile   = "weekly.md"
	weeklyHTMLFile = "weekly.html"
	manifestFile   = "run.json"
)

// runManifest is written to run.json after a successful run.
type runManifest struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Provider     string    `json:"provider"`
	Models       []string  `json:"models"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	JourneyModel string    `json:"journey_model,omitempty"`
	WeeklyModel  string    `json:"weekly_model,omitempty"`
	MessagesIn   int       `json:"messages_in"`
	MessagesSent int       `json:"messages_sent"`
	Skipped      int       `json:"skipped_rows"`
}

func main() {
	if err := settings.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(provider.APIKeyEnv(cfg.Provider))
	}
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "missing %s (or pass -api-key)\n", provider.APIKeyEnv(cfg.Provider))
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, "text")
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	models, err := settings.ModelOrder(cfg.Provider, cfg.Model, cfg.FallbackModels, os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	inv, err := provider.NewInvoker(models, provider.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	client, err := provider.NewClient(ctx, cfg.Provider, apiKey, cfg.MaxOutputTokens)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	b := &journey.Builder{Invoker: inv, Compaction: cfg.Compaction, Logger: logger}
	b.UseClient(client)

	if err := run(ctx, cfg, b, logger); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, b *journey.Builder, logger *slog.Logger) error {
	doJourney := cfg.Mode == modeJourney || cfg.Mode == modeBoth
	doWeekly := cfg.Mode == modeWeekly || cfg.Mode == modeBoth

	targets := []string{manifestFile}
	if doJourney {
		targets = append(targets, journeyFile)
	}
	if doWeekly {
		targets = append(targets, weeklyMDFile, weeklyHTMLFile)
	}
	for _, name := range targets {
		if err := fileutils.CheckWritable(filepath.Join(cfg.OutDir, name), cfg.Overwrite); err != nil {
			return fmt.Errorf("%w (pass -overwrite to replace)", err)
		}
	}

	msgs, stats, err := readExport(cfg.InPath)
	if err != nil {
		return err
	}
	msgs = journey.FilterByDate(msgs, cfg.From, cfg.To)
	if len(msgs) == 0 {
		return fmt.Errorf("no messages in %s between %q and %q", cfg.InPath, cfg.From, cfg.To)
	}
	from, to := journey.DateBounds(msgs)
	logger.Info("chat export loaded", "path", cfg.InPath, "rows", stats.Rows, "skipped", stats.Skipped, "selected", len(msgs), "from", from, "to", to)

	prior, err := loadPriorTimeline(cfg.PriorTimelinePath)
	if err != nil {
		return err
	}

	manifest := runManifest{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		Provider:   cfg.Provider,
		Models:     b.Invoker.Models(),
		From:       from,
		To:         to,
		MessagesIn: len(msgs),
		Skipped:    stats.Skipped,
	}

	if doJourney {
		res, err := b.BuildJourney(ctx, journey.JourneyRequest{
			MemberName: cfg.MemberName,
			Timezone:   cfg.Timezone,
			Messages:   msgs,
		})
		if err != nil {
			var ue *journey.UnparsableResponseError
			if errors.As(err, &ue) {
				rawPath := filepath.Join(cfg.OutDir, journeyRawFile)
				if werr := fileutils.WriteFileAtomic(rawPath, []byte(ue.RawPrefix), 0o644); werr != nil {
					return fmt.Errorf("journey: %w (and saving raw output failed: %v)", err, werr)
				}
				return fmt.Errorf("journey from %s: %w (raw output saved to %s)", ue.ModelUsed, err, rawPath)
			}
			return fmt.Errorf("journey: %w", err)
		}
		if err := fileutils.WriteJSONFileAtomic(filepath.Join(cfg.OutDir, journeyFile), res.Output, cfg.Pretty); err != nil {
			return err
		}
		manifest.JourneyModel = res.ModelUsed
		manifest.MessagesSent = res.MessagesSent
		logger.Info("journey written", "model", res.ModelUsed, "messages_sent", res.MessagesSent)

		if prior == nil && doWeekly {
			prior = timelineOf(res.Output, logger)
		}
	}

	if doWeekly {
		res, err := b.SummarizeWeek(ctx, journey.WeeklyRequest{
			WeekRange:     []string{from, to},
			Messages:      msgs,
			PriorTimeline: prior,
		})
		if err != nil {
			return fmt.Errorf("weekly summary: %w", err)
		}
		if err := fileutils.WriteFileAtomic(filepath.Join(cfg.OutDir, weeklyMDFile), []byte(res.Text), 0o644); err != nil {
			return err
		}
		body, err := markdown.Render(res.Text)
		if err != nil {
			return err
		}
		page := htmlPage(fmt.Sprintf("Weekly summary %s to %s", from, to), body)
		if err := fileutils.WriteFileAtomic(filepath.Join(cfg.OutDir, weeklyHTMLFile), []byte(page), 0o644); err != nil {
			return err
		}
		manifest.WeeklyModel = res.ModelUsed
		manifest.MessagesSent = max(manifest.MessagesSent, res.MessagesSent)
		logger.Info("weekly summary written", "model", res.ModelUsed, "preview", fileutils.Truncate(res.Text, 120))
	}

	manifest.FinishedAt = time.Now().UTC()
	return fileutils.WriteJSONFileAtomic(filepath.Join(cfg.OutDir, manifestFile), manifest, true)
}

func readExport(path string) ([]journey.ChatMessage, journey.ExportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, journey.ExportStats{}, fmt.Errorf("open -in: %w", err)
	}
	defer f.Close()
	msgs, stats, err := journey.ReadChatExport(f)
	if err != nil {
		return nil, stats, fmt.Errorf("read %s: %w", path, err)
	}
	return msgs, stats, nil
}

// loadPriorTimeline reads a timeline array or a whole journey document. An empty path yields nil.
func loadPriorTimeline(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read -prior-timeline: %w", err)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err == nil {
		return json.RawMessage(b), nil
	}
	var doc struct {
		Timeline json.RawMessage `json:"journey_timeline"`
	}
	if err := json.Unmarshal(b, &doc); err != nil || len(doc.Timeline) == 0 {
		return nil, fmt.Errorf("-prior-timeline %s: want a JSON array or a journey document", path)
	}
	return doc.Timeline, nil
}

// timelineOf extracts journey_timeline from a journey document. Documents that do not match
// JourneyOutput yield nil.
func timelineOf(doc json.RawMessage, logger *slog.Logger) json.RawMessage {
	var out journey.JourneyOutput
	if err := journey.InterpretInto(string(doc), &out); err != nil {
		logger.Warn("journey output not usable as prior timeline", "error", err)
		return nil
	}
	if len(out.JourneyTimeline) == 0 {
		return nil
	}
	b, err := json.Marshal(out.JourneyTimeline)
	if err != nil {
		return nil
	}
	return b
}

func htmlPage(title, body string) string {
	return "<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" + html.EscapeString(title) +
		"</title>\n</head>\n<body>\n" + body + "</body>\n</html>\n"
}
