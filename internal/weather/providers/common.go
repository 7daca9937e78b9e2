package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/weather"
)

var errNoHTTPClient = errors.New("http client not configured")

// upstreamMonitor counts request outcomes through a breaker that never opens:
// every site still gets its own request. Once threshold consecutive requests
// have failed the source is reported degraded until the next success.
// A threshold of 0 disables reporting.
type upstreamMonitor struct {
	name      string
	cb        *gobreaker.CircuitBreaker
	threshold uint32
	rt        *app.Runtime
	degraded  atomic.Bool
}

func newUpstreamMonitor(rt *app.Runtime, name string, threshold int) *upstreamMonitor {
	m := &upstreamMonitor{
		name: name,
		rt:   rt,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			ReadyToTrip: func(gobreaker.Counts) bool { return false },
		}),
	}
	if threshold > 0 {
		m.threshold = uint32(threshold)
	}
	return m
}

// observe updates the degraded state from the breaker's running counts.
func (m *upstreamMonitor) observe() {
	if m.threshold == 0 {
		return
	}
	counts := m.cb.Counts()
	switch {
	case counts.ConsecutiveFailures >= m.threshold:
		if !m.degraded.Swap(true) {
			m.rt.Log.Warn("upstream degraded",
				zap.String("source", m.name),
				zap.Uint32("consecutive_failures", counts.ConsecutiveFailures))
			m.rt.Metrics.UpstreamDegraded(m.name, true)
		}
	case counts.ConsecutiveSuccesses > 0:
		if m.degraded.Swap(false) {
			m.rt.Log.Info("upstream recovered", zap.String("source", m.name))
			m.rt.Metrics.UpstreamDegraded(m.name, false)
		}
	}
}

// Degraded reports whether the source is currently considered degraded.
func (m *upstreamMonitor) Degraded() bool {
	return m.degraded.Load()
}

// doRequest executes a single request. There are no retries: a failure
// belongs to the caller's current site.
// Non-2xx responses become *weather.RemoteServiceError; the body is closed.
func doRequest(ctx context.Context, client *http.Client, mon *upstreamMonitor, req *http.Request) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}
	req = req.WithContext(ctx)

	result, err := mon.cb.Execute(func() (interface{}, error) {
		resp, err := client.Do(req)
		if err != nil {
			return nil, &weather.RemoteServiceError{URL: req.URL.Redacted(), Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &weather.RemoteServiceError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	mon.observe()
	if err != nil {
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}
