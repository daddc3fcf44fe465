// Package agent runs the job pipeline: discover postings across the
// configured sources, filter them down to eligible candidates, apply on the
// board one candidate at a time and reach out to recruiters for the
// applications that went through. One Cycle is a single full pass; the agent
// can run one cycle or keep cycling on an interval or cron schedule.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/ai"
	"naukri-agent/internal/apply"
	"naukri-agent/internal/board"
	"naukri-agent/internal/discovery"
	"naukri-agent/internal/filtering"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/outreach"
	"naukri-agent/internal/store"
	"naukri-agent/internal/utils"
)

// defaultInterval is the pause between cycles when loop mode is on and no
// interval is configured.
const defaultInterval = 60 * time.Minute

// ConfirmFunc asks whether the apply phase may proceed with the given
// eligible candidates. It runs after filtering and before the first
// submission.
type ConfirmFunc func(candidates *jobs.Candidates) (bool, error)

// Config is the per-run behavior of the agent.
type Config struct {
	// Queries are the (role, location) search targets for every source.
	Queries []jobs.Query
	// ResumeSummary is the profile text recruiter messages are drafted
	// from.
	ResumeSummary string
	// DiscoverFromBoard adds the board scrape source to discovery. The
	// board session itself is opened in every mode, applying needs it.
	DiscoverFromBoard bool
	// SourceTimeout bounds each discovery source per cycle.
	SourceTimeout time.Duration
	// Loop keeps cycling instead of exiting after one pass. Cycles are
	// spaced by Interval, or by Schedule when one is set.
	Loop     bool
	Interval time.Duration
	Schedule string
}

// Deps are the wired collaborators. Driver, Filters, Store, Activity and
// Pacer are required. A nil Drafter disables the outreach phase, a nil
// Fallback disables only the social-network channel, a nil Confirm applies
// without asking.
type Deps struct {
	Driver      board.Driver
	Credentials board.Credentials
	APISources  []discovery.Source
	Filters     *filtering.Pipeline
	Store       store.Store
	Activity    activitylog.Recorder
	Pacer       apply.Pacer
	Drafter     ai.Drafter
	Fallback    outreach.Fallback
	Confirm     ConfirmFunc
	Logger      *zap.Logger
}

// Agent drives cycles against the wired collaborators.
type Agent struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

// New validates the wiring and returns an Agent.
func New(cfg Config, deps Deps) (*Agent, error) {
	switch {
	case deps.Driver == nil:
		return nil, errors.New("agent: board driver is required")
	case deps.Filters == nil:
		return nil, errors.New("agent: filtering pipeline is required")
	case deps.Store == nil:
		return nil, errors.New("agent: dedup store is required")
	case deps.Activity == nil:
		return nil, errors.New("agent: activity recorder is required")
	case deps.Pacer == nil:
		return nil, errors.New("agent: pacer is required")
	}

	if cfg.Loop && cfg.Schedule == "" && cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{cfg: cfg, deps: deps, logger: logger}, nil
}

// Run executes the agent in its configured mode. In once mode the cycle's
// error is the run's error. In loop mode cycle failures are logged and the
// agent waits for the next slot; only cancellation ends the run.
func (a *Agent) Run(ctx context.Context) error {
	if !a.cfg.Loop {
		_, err := a.RunCycle(ctx)
		return err
	}

	if a.cfg.Schedule != "" {
		return a.runScheduled(ctx)
	}
	return a.runInterval(ctx)
}

func (a *Agent) runInterval(ctx context.Context) error {
	for {
		a.cycle(ctx)

		if err := ctx.Err(); err != nil {
			return err
		}

		a.logger.Info("waiting for the next cycle", zap.Duration("interval", a.cfg.Interval))
		if err := utils.WaitFor(ctx, a.cfg.Interval); err != nil {
			return err
		}
	}
}

func (a *Agent) runScheduled(ctx context.Context) error {
	runner := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(a.logger))),
	))

	if _, err := runner.AddFunc(a.cfg.Schedule, func() { a.cycle(ctx) }); err != nil {
		return fmt.Errorf("parsing loop schedule %q: %w", a.cfg.Schedule, err)
	}

	// One pass right away, then the schedule takes over.
	a.cycle(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	a.logger.Info("following cron schedule", zap.String("schedule", a.cfg.Schedule))
	runner.Start()
	<-ctx.Done()

	stopped := runner.Stop()
	<-stopped.Done()
	return ctx.Err()
}

// cycle runs one pass and logs its failure instead of returning it, so a
// bad cycle never stops the loop.
func (a *Agent) cycle(ctx context.Context) {
	if _, err := a.RunCycle(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("cycle failed", zap.Error(err))
	}
}

// RunCycle performs one full discover, filter, apply, outreach pass and
// returns its report. The board session lives exactly as long as the cycle.
func (a *Agent) RunCycle(ctx context.Context) (*Cycle, error) {
	cycle := newCycle()
	logger := a.logger.With(zap.String("cycle_id", cycle.ID))

	logger.Info("starting cycle", zap.Int("queries", len(a.cfg.Queries)))

	session, err := a.deps.Driver.Login(ctx, a.deps.Credentials)
	if err != nil {
		return cycle, fmt.Errorf("board login: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing board session", zap.Error(err))
		}
	}()

	found, err := a.discover(ctx, session, logger)
	if err != nil {
		return cycle, err
	}
	cycle.Discovered = found.Len()
	if found.Len() == 0 {
		logger.Info("finishing cycle", zap.String("reason", "no candidates discovered"))
		return cycle, nil
	}

	eligible, err := a.deps.Filters.Run(ctx, cycle.ID, found)
	if err != nil {
		return cycle, fmt.Errorf("filtering: %w", err)
	}
	cycle.Eligible = eligible.Len()
	if eligible.Len() == 0 {
		logger.Info("finishing cycle", zap.String("reason", "no candidates left after filters"))
		return cycle, nil
	}

	// Walk the board in a fresh order every cycle rather than a mechanical
	// top-to-bottom sweep.
	eligible.Shuffle()

	if a.deps.Confirm != nil {
		approved, err := a.deps.Confirm(eligible)
		if err != nil {
			return cycle, fmt.Errorf("apply confirmation: %w", err)
		}
		if !approved {
			logger.Info("finishing cycle", zap.String("reason", "apply not approved"))
			return cycle, nil
		}
	}

	engine := apply.New(session, a.deps.Store, a.deps.Activity, a.deps.Pacer, logger)
	if err := engine.Run(ctx, cycle.ID, eligible); err != nil {
		return cycle, fmt.Errorf("apply phase: %w", err)
	}

	if a.deps.Drafter != nil {
		coordinator := outreach.New(session, a.deps.Drafter, a.deps.Fallback, a.deps.Activity, a.cfg.ResumeSummary, logger)
		if err := coordinator.Run(ctx, cycle.ID, eligible); err != nil {
			return cycle, fmt.Errorf("outreach phase: %w", err)
		}
	} else {
		logger.Info("skipping outreach", zap.String("reason", "no message drafter configured"))
	}

	cycle.Count(eligible)
	logger.Info("cycle finished", cycle.Fields()...)
	return cycle, nil
}

// discover fans the queries out to the cycle's sources and merges the
// results. The scrape source joins only when board discovery is on; API
// sources run in every mode they are configured for.
func (a *Agent) discover(ctx context.Context, session board.Session, logger *zap.Logger) (*jobs.Candidates, error) {
	var sources []discovery.Source
	if a.cfg.DiscoverFromBoard {
		sources = append(sources, discovery.NewScrapeSource(session, logger))
	}
	sources = append(sources, a.deps.APISources...)

	merger := discovery.NewMerger(sources, a.cfg.SourceTimeout, logger)

	found, err := merger.Discover(ctx, a.cfg.Queries)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	return found, nil
}
