package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theimaginaryfoundation/journey-o-bot/journey"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/fileutils"
	"github.com/theimaginaryfoundation/journey-o-bot/journey/provider"
)

const chatCSV = "timestamp,sender,message\n" +
	"2025-01-01 08:00,Rohan,Starting the plan\n" +
	"2025-01-02 09:00,Dr. Warren,Order labs\n" +
	"2025-01-20 10:00,Ruby (Elyx Concierge),Out of range\n"

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("journey-builder", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "exports/chat.csv",
		"-out", "out/week1/",
		"-from", "2025-01-01",
		"-to", "2025-01-07",
		"-mode", "weekly",
		"-provider", "openai",
		"-member", "Rohan Patel",
		"-pretty",
		"-overwrite",
		"-max-serialized-chars", "5000",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InPath != filepath.FromSlash("exports/chat.csv") || cfg.OutDir != filepath.FromSlash("out/week1") {
		t.Fatalf("paths in=%q out=%q", cfg.InPath, cfg.OutDir)
	}
	if cfg.Mode != modeWeekly || cfg.Provider != provider.OpenAI || cfg.MemberName != "Rohan Patel" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Timezone != journey.DefaultTimezone {
		t.Fatalf("Timezone=%q", cfg.Timezone)
	}
	if !cfg.Pretty || !cfg.Overwrite || cfg.Compaction.MaxSerializedChars != 5000 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	base.InPath = "chat.csv"

	cases := map[string]func(c *Config){
		"missing in":    func(c *Config) { c.InPath = "" },
		"bad mode":      func(c *Config) { c.Mode = "all" },
		"half range":    func(c *Config) { c.From = "2025-01-01" },
		"bad date":      func(c *Config) { c.From, c.To = "2025-1-1", "2025-01-02" },
		"reversed":      func(c *Config) { c.From, c.To = "2025-01-09", "2025-01-02" },
		"bad provider":  func(c *Config) { c.Provider = "mystery" },
		"negative caps": func(c *Config) { c.Compaction.MaxPerMessageChars = -1 },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base: %v", err)
	}
}

type fakeModel struct {
	journey string
	weekly  string
	prompts []string
}

func (f *fakeModel) builder(t *testing.T) *journey.Builder {
	t.Helper()
	inv, err := provider.NewInvoker([]string{"model-a"})
	require.NoError(t, err)
	return &journey.Builder{
		Invoker: inv,
		JourneyCaller: func(ctx context.Context, model, prompt string) (string, error) {
			f.prompts = append(f.prompts, prompt)
			return f.journey, nil
		},
		WeeklyCaller: func(ctx context.Context, model, prompt string) (string, error) {
			f.prompts = append(f.prompts, prompt)
			return f.weekly, nil
		},
	}
}

func setupRun(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "chat.csv")
	require.NoError(t, os.WriteFile(in, []byte(chatCSV), 0o644))
	cfg := defaultConfig()
	cfg.InPath = in
	cfg.OutDir = filepath.Join(dir, "out")
	cfg.From, cfg.To = "2025-01-01", "2025-01-07"
	return cfg
}

func TestRun_Both(t *testing.T) {
	t.Parallel()

	cfg := setupRun(t)
	fm := &fakeModel{
		journey: "```json\n{\"journey_timeline\":[{\"date\":\"2025-01-02\",\"event\":\"Labs ordered\",\"why_trace\":[\"m-2025-01-02-001\"]}]}\n```",
		weekly:  "## Executive brief\nLabs ordered.",
	}
	err := run(context.Background(), cfg, fm.builder(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(cfg.OutDir, journeyFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Labs ordered"`)

	md, err := os.ReadFile(filepath.Join(cfg.OutDir, weeklyMDFile))
	require.NoError(t, err)
	assert.Equal(t, "## Executive brief\nLabs ordered.\n", string(md))

	page, err := os.ReadFile(filepath.Join(cfg.OutDir, weeklyHTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(page), `<h2 id="executive-brief">Executive brief</h2>`)
	assert.Contains(t, string(page), "<title>Weekly summary 2025-01-01 to 2025-01-02</title>")

	var m runManifest
	b, err = os.ReadFile(filepath.Join(cfg.OutDir, manifestFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &m))
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, "model-a", m.JourneyModel)
	assert.Equal(t, "model-a", m.WeeklyModel)
	assert.Equal(t, []string{"model-a"}, m.Models)
	assert.Equal(t, 2, m.MessagesIn)
	assert.Equal(t, 2, m.MessagesSent)
	assert.False(t, m.FinishedAt.Before(m.StartedAt))

	require.Len(t, fm.prompts, 2)
	assert.NotContains(t, fm.prompts[0], "Out of range")
	assert.Contains(t, fm.prompts[1], `"prior_timeline":[{"date":"2025-01-02","event":"Labs ordered","why_trace":["m-2025-01-02-001"]}]`)

	// A second run refuses to clobber outputs.
	err = run(context.Background(), cfg, fm.builder(t), slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, fileutils.ErrExists)
}

func TestRun_UnparsableJourneySavesRaw(t *testing.T) {
	t.Parallel()

	cfg := setupRun(t)
	cfg.Mode = modeJourney
	fm := &fakeModel{journey: "Sorry, I can't produce JSON today."}

	err := run(context.Background(), cfg, fm.builder(t), slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.True(t, journey.IsUnparsable(err))
	assert.Contains(t, err.Error(), journeyRawFile)

	raw, rerr := os.ReadFile(filepath.Join(cfg.OutDir, journeyRawFile))
	require.NoError(t, rerr)
	assert.Equal(t, "Sorry, I can't produce JSON today....\n", string(raw))
	_, serr := os.Stat(filepath.Join(cfg.OutDir, manifestFile))
	assert.True(t, errors.Is(serr, os.ErrNotExist))
}

func TestRun_NoMessagesInRange(t *testing.T) {
	t.Parallel()

	cfg := setupRun(t)
	cfg.From, cfg.To = "2024-01-01", "2024-01-31"
	err := run(context.Background(), cfg, (&fakeModel{}).builder(t), slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no messages"))
}

func TestLoadPriorTimeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	arr := filepath.Join(dir, "timeline.json")
	require.NoError(t, os.WriteFile(arr, []byte(`[{"date":"2025-01-01"}]`), 0o644))
	doc := filepath.Join(dir, "journey.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{"journey_timeline":[{"date":"2025-01-02"}],"ops_metrics":{}}`), 0o644))
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"other":1}`), 0o644))

	got, err := loadPriorTimeline("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = loadPriorTimeline(arr)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2025-01-01"}]`, string(got))

	got, err = loadPriorTimeline(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2025-01-02"}]`, string(got))

	_, err = loadPriorTimeline(bad)
	assert.Error(t, err)
}
