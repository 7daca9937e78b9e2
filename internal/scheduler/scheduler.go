package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/weather"
)

// SiteLoader returns the sites for the next run. It is called once per run
// so edits to the site list are picked up without a restart.
type SiteLoader func() ([]weather.Site, error)

// Runner is the loop the scheduler drives.
type Runner interface {
	Run(ctx context.Context, sites []weather.Site) weather.Report
}

// Scheduler periodically runs the weather loop over all sites.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	loadSites SiteLoader
	rt        *app.Runtime

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(rt *app.Runtime, runner Runner, loadSites SiteLoader) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		loadSites: loadSites,
		rt:        rt,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RunOnce loads the sites and runs the loop a single time.
func (s *Scheduler) RunOnce(ctx context.Context) (weather.Report, error) {
	sites, err := s.loadSites()
	if err != nil {
		return weather.Report{}, err
	}
	if len(sites) == 0 {
		s.rt.Log.Warn("scheduler: no sites configured; nothing to do")
	}
	return s.runner.Run(ctx, sites), nil
}

// Start schedules the periodic job from the cron expression or, failing that,
// the fixed interval, and starts the underlying scheduler. Interval jobs run
// right away; cron jobs wait for their first match.
func (s *Scheduler) Start() error {
	mc := s.rt.Config.Master

	var job *gocron.Scheduler
	if mc.Schedule != "" {
		job = s.scheduler.Cron(mc.Schedule)
	} else {
		job = s.scheduler.Every(mc.Interval)
	}

	// A run never overlaps the previous one: requests stay one per throttle interval.
	_, err := job.SingletonMode().Do(func() {
		s.rt.Log.Info("scheduler: running weather fetch job")
		if _, err := s.RunOnce(s.ctx); err != nil {
			s.rt.Log.Error("scheduler: cannot load sites", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels any in-flight run and stops future jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
