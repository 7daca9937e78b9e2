package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/config"
	"github.com/i474232898/weather-sync/internal/weather"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, breaker int) *GismeteoProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rt := app.Nop(&config.AppConfig{Master: config.MasterConfig{
		APIBaseURL:       srv.URL + "/v2/",
		APIToken:         "test-token",
		BreakerThreshold: breaker,
	}})
	return NewGismeteoProvider(rt, srv.Client())
}

func TestGismeteoFetch(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/weather/current/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Gismeteo-Token"); got != "test-token" {
			t.Errorf("expected token header, got %q", got)
		}
		if r.URL.Query().Get("latitude") != "55.75" || r.URL.Query().Get("longitude") != "37.61" {
			t.Errorf("unexpected coordinates %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"meta":{"status":true},"response":{"temperature":{"air":{"C":-3.5}},"precipitation":{"type":2,"intensity":1}}}`))
	}, 0)

	raw, err := p.Fetch(context.Background(), weather.Site{ID: "007", Latitude: 55.75, Longitude: 37.61})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := weather.RawObservation{TemperatureC: -3.5, PrecipitationType: 2, Intensity: 1}
	if raw != want {
		t.Fatalf("expected %+v, got %+v", want, raw)
	}
}

func TestGismeteoFetchNonSuccessStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 0)

	_, err := p.Fetch(context.Background(), weather.Site{ID: "1"})
	var rse *weather.RemoteServiceError
	if !errors.As(err, &rse) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if rse.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rse.StatusCode)
	}
}

func TestGismeteoFetchMalformedBody(t *testing.T) {
	cases := map[string]string{
		"html error page": "<html>oops</html>",
		"no response":     `{"meta":{}}`,
		"no temperature":  `{"response":{"precipitation":{"type":0,"intensity":0}}}`,
		"no intensity":    `{"response":{"temperature":{"air":{"C":1}},"precipitation":{"type":0}}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}, 0)

			_, err := p.Fetch(context.Background(), weather.Site{ID: "1"})
			var rfe *weather.ResponseFormatError
			if !errors.As(err, &rfe) {
				t.Fatalf("expected ResponseFormatError, got %v", err)
			}
		})
	}
}

func TestGismeteoKeepsRequestingWhileDegraded(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	for i := 0; i < 4; i++ {
		_, err := p.Fetch(context.Background(), weather.Site{ID: "1"})
		var rse *weather.RemoteServiceError
		if !errors.As(err, &rse) || rse.StatusCode != http.StatusBadGateway {
			t.Fatalf("request %d: expected RemoteServiceError 502, got %v", i, err)
		}
	}

	if got := calls.Load(); got != 4 {
		t.Fatalf("expected every fetch to reach the API, got %d calls", got)
	}
	if !p.upstream.Degraded() {
		t.Fatal("expected source to be reported degraded")
	}
}

func TestGismeteoRecoversFromDegraded(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response":{"temperature":{"air":{"C":1}},"precipitation":{"type":0,"intensity":0}}}`))
	}, 1)

	p.Fetch(context.Background(), weather.Site{ID: "1"})
	if !p.upstream.Degraded() {
		t.Fatal("expected degraded after failure")
	}

	fail.Store(false)
	if _, err := p.Fetch(context.Background(), weather.Site{ID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.upstream.Degraded() {
		t.Fatal("expected recovery after success")
	}
}

func TestGismeteoUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	rt := app.Nop(&config.AppConfig{Master: config.MasterConfig{APIBaseURL: base, APIToken: "t"}})
	p := NewGismeteoProvider(rt, &http.Client{Timeout: time.Second})

	_, err := p.Fetch(context.Background(), weather.Site{ID: "1"})
	var rse *weather.RemoteServiceError
	if !errors.As(err, &rse) || rse.StatusCode != 0 || rse.Err == nil {
		t.Fatalf("expected transport RemoteServiceError, got %v", err)
	}
}

type memoryStore map[string]weather.Observation

func (m memoryStore) Upsert(obs weather.Observation) error {
	m[obs.SiteID] = obs
	return nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(weather.Observation) error { return nil }

// Five sites failing in a row must not cost the healthy sites after them.
func TestServiceStoresHealthySiteAfterFailingStreak(t *testing.T) {
	var healthyCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") == "1" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		healthyCalls.Add(1)
		w.Write([]byte(`{"response":{"temperature":{"air":{"C":4}},"precipitation":{"type":1,"intensity":1}}}`))
	}))
	defer srv.Close()

	rt := app.Nop(&config.AppConfig{Master: config.MasterConfig{
		APIBaseURL:       srv.URL,
		APIToken:         "t",
		BreakerThreshold: 5,
	}})
	p := NewGismeteoProvider(rt, srv.Client())
	st := memoryStore{}

	sites := []weather.Site{
		{ID: "a", Latitude: 1}, {ID: "b", Latitude: 1}, {ID: "c", Latitude: 1},
		{ID: "d", Latitude: 1}, {ID: "e", Latitude: 1},
		{ID: "F", Latitude: 2}, {ID: "G", Latitude: 2},
	}
	report := weather.NewService(rt, p, st, discardPublisher{}).Run(context.Background(), sites)

	for _, id := range []string{"F", "G"} {
		if _, ok := st[id]; !ok {
			t.Errorf("healthy site %s not stored; outcomes %+v", id, report.Outcomes)
		}
	}
	if got := healthyCalls.Load(); got != 2 {
		t.Fatalf("expected both healthy sites to be requested, got %d", got)
	}
	if len(report.Failed()) != 5 {
		t.Fatalf("expected 5 failed sites, got %d", len(report.Failed()))
	}
}
