package weather

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
)

// Stage is the step of a site cycle an outcome ended at.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
	StagePublish   Stage = "publish"
)

// Outcome is the result of one site cycle. Err is nil on success, in which
// case Stage is StagePublish.
type Outcome struct {
	SiteID      string
	Stage       Stage
	Observation Observation
	Err         error
}

// Report summarizes one pass over the site list.
type Report struct {
	RunID    string
	Outcomes []Outcome
}

// Succeeded returns the number of sites whose observation was stored and published.
func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the outcomes that did not complete.
func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Service runs the sequential fetch, normalize, store and publish loop.
type Service struct {
	rt        *app.Runtime
	source    Source
	store     Store
	publisher Publisher
	throttle  time.Duration

	now func() time.Time
}

// NewService creates a new Service. The throttle comes from the runtime config.
func NewService(rt *app.Runtime, source Source, store Store, publisher Publisher) *Service {
	return &Service{
		rt:        rt,
		source:    source,
		store:     store,
		publisher: publisher,
		throttle:  rt.Config.Master.Throttle,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run processes sites strictly in order. A failing site is recorded and
// skipped; it never stops the remaining sites. Only ctx cancellation ends the
// loop early.
func (s *Service) Run(ctx context.Context, sites []Site) Report {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	log := s.rt.Log.With(zap.String("run_id", report.RunID))

	log.Info("weather run started", zap.Int("sites", len(sites)), zap.String("source", s.source.Name()))

	for _, site := range sites {
		if err := s.wait(ctx); err != nil {
			log.Warn("weather run interrupted", zap.Error(err))
			break
		}

		out := s.processSite(ctx, site)
		report.Outcomes = append(report.Outcomes, out)
		s.rt.Metrics.SiteOutcome(string(out.Stage), out.Err == nil)

		siteLog := log.With(zap.String("site_id", site.ID), zap.String("stage", string(out.Stage)))
		switch {
		case out.Err == nil:
			siteLog.Info("site data saved",
				zap.Float64("temperature", out.Observation.Temperature),
				zap.String("precipitation_type", string(out.Observation.PrecipitationType)),
				zap.String("precipitation_intensity", string(out.Observation.Intensity)),
			)
		case IsContractBreak(out.Err):
			siteLog.Error("weather api sent an unknown code; site skipped", zap.Error(out.Err))
		default:
			siteLog.Warn("site cycle failed; site skipped", zap.Error(out.Err))
		}
	}

	s.rt.Metrics.RunDuration(time.Since(start).Seconds())
	log.Info("weather run completed",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("took", time.Since(start)),
	)
	return report
}

func (s *Service) processSite(ctx context.Context, site Site) Outcome {
	out := Outcome{SiteID: site.ID}

	raw, err := s.source.Fetch(ctx, site)
	if err != nil {
		out.Stage, out.Err = StageFetch, err
		return out
	}

	obs, err := Normalize(site.ID, raw, s.now())
	if err != nil {
		out.Stage, out.Err = StageNormalize, err
		return out
	}
	out.Observation = obs

	// The aggregate is the record of truth; never publish what it does not hold.
	if err := s.store.Upsert(obs); err != nil {
		out.Stage, out.Err = StagePersist, err
		return out
	}
	if err := s.publisher.Publish(obs); err != nil {
		out.Stage, out.Err = StagePublish, err
		return out
	}

	out.Stage = StagePublish
	return out
}

// wait sleeps for the throttle interval, returning early if ctx is done.
func (s *Service) wait(ctx context.Context) error {
	if s.throttle <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.throttle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
