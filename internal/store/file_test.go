package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/config"
	"github.com/i474232898/weather-sync/internal/weather"
)

func newTestRuntime(t *testing.T) *app.Runtime {
	t.Helper()
	dir := t.TempDir()
	return app.Nop(&config.AppConfig{Master: config.MasterConfig{
		ResultFile:  filepath.Join(dir, "weather_result.json"),
		PublishRoot: filepath.Join(dir, "store"),
	}})
}

func obsAt(site string, temp float64, minute int) weather.Observation {
	return weather.Observation{
		SiteID:            site,
		Date:              time.Date(2026, 10, 15, 6, minute, 0, 0, time.UTC),
		Temperature:       temp,
		PrecipitationType: weather.PrecipitationRain,
		Intensity:         weather.IntensityLight,
	}
}

func TestUpsertLastWriteWins(t *testing.T) {
	s := NewFileStore(newTestRuntime(t))

	seq := []weather.Observation{
		obsAt("1", 1, 0),
		obsAt("2", 2, 1),
		obsAt("1", 3, 2),
		obsAt("3", 4, 3),
		obsAt("2", 5, 4),
	}
	for _, o := range seq {
		if err := s.Upsert(o); err != nil {
			t.Fatalf("upsert %s: %v", o.SiteID, err)
		}
	}

	got := s.Load()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	want := map[string]weather.Observation{"1": seq[2], "2": seq[4], "3": seq[3]}
	for id, w := range want {
		if g := got[id]; !g.Date.Equal(w.Date) || g.Temperature != w.Temperature {
			t.Errorf("site %s: expected %+v, got %+v", id, w, g)
		}
	}
}

func TestUpsertPreservesUntouchedEntries(t *testing.T) {
	rt := newTestRuntime(t)
	existing := `{"old":{"index":"old","date":"2025-01-01T00:00:00Z","temperature":10,"precipitation type":"rain","precipitation intensity":"heavy"}}`
	if err := os.WriteFile(rt.Config.Master.ResultFile, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(rt)
	if err := s.Upsert(obsAt("new", 1, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old, err := s.Get("old")
	if err != nil {
		t.Fatalf("expected old entry to survive: %v", err)
	}
	if old.Intensity != weather.IntensityHeavy || old.Temperature != 10 {
		t.Fatalf("old entry changed: %+v", old)
	}
	if _, err := s.Get("new"); err != nil {
		t.Fatalf("expected new entry: %v", err)
	}
}

func TestUpsertRecoversFromMissingOrCorruptStore(t *testing.T) {
	cases := map[string]*string{
		"missing":      nil,
		"corrupt":      strPtr("{not json"),
		"legacy array": strPtr(`[{"azs_index":1}]`),
		"null":         strPtr("null"),
		"empty":        strPtr(""),
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			rt := newTestRuntime(t)
			if content != nil {
				if err := os.WriteFile(rt.Config.Master.ResultFile, []byte(*content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			s := NewFileStore(rt)
			if err := s.Upsert(obsAt("007", -3.5, 0)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			raw, err := os.ReadFile(rt.Config.Master.ResultFile)
			if err != nil {
				t.Fatal(err)
			}
			var got map[string]json.RawMessage
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("store not valid json: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("expected exactly one entry, got %d", len(got))
			}
			if _, ok := got["007"]; !ok {
				t.Fatal("expected entry for 007")
			}
		})
	}
}

func TestUpsertIdempotent(t *testing.T) {
	s := NewFileStore(newTestRuntime(t))
	o := obsAt("1", 2, 0)

	for i := 0; i < 2; i++ {
		if err := s.Upsert(o); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	got, err := s.Get("1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Date.Equal(o.Date) || got.Temperature != o.Temperature || len(s.Load()) != 1 {
		t.Fatalf("unexpected store state %+v", s.Load())
	}
}

func TestUpsertPersistenceError(t *testing.T) {
	rt := newTestRuntime(t)
	// A regular file where the parent directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	rt.Config.Master.ResultFile = filepath.Join(blocker, "weather_result.json")

	err := NewFileStore(rt).Upsert(obsAt("1", 0, 0))
	var pe *weather.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := NewFileStore(newTestRuntime(t))
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
