// Package pacing spaces consecutive apply actions so the agent does not hit
// the board faster than a human would.
package pacing

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"naukri-agent/internal/utils"
)

// Controller enforces a minimum wall-clock delay between Wait calls, plus a
// random extra on top so actions are not evenly spaced. The first Wait of a
// run passes immediately.
type Controller struct {
	limiter   *rate.Limiter
	maxJitter time.Duration
	logger    *zap.Logger
}

// New returns a Controller with the given minimum delay and jitter ceiling.
// A non-positive minDelay disables the fixed spacing, a non-positive
// maxJitter disables the random extra.
func New(minDelay, maxJitter time.Duration, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}

	return &Controller{
		limiter:   rate.NewLimiter(limit, 1),
		maxJitter: maxJitter,
		logger:    logger,
	}
}

// Wait blocks until the next action is allowed or ctx is cancelled. The
// delay is a blocking pause on the calling worker, not a token handout to
// concurrent callers.
func (c *Controller) Wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if c.maxJitter <= 0 {
		return nil
	}

	extra := utils.Jitter(c.maxJitter)
	if extra > 0 {
		c.logger.Debug("pacing", zap.Duration("extra_delay", extra))
	}
	return utils.WaitFor(ctx, extra)
}
