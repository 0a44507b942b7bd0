// Package backoff provides the per-worker delay used after faults.
package backoff

import (
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// Controller is a doubling delay with a floor and a ceiling.
//
// OnFailure returns the current delay and then doubles it, capped at the
// ceiling; OnSuccess drops it back to the floor. A Controller belongs to a
// single worker and is not safe for concurrent use.
type Controller struct {
	floor   time.Duration
	ceiling time.Duration
	exp     *cbackoff.ExponentialBackOff
}

// New creates a controller. A non-positive floor falls back to one second;
// a ceiling below the floor is raised to the floor.
func New(floor, ceiling time.Duration) *Controller {
	if floor <= 0 {
		floor = time.Second
	}
	if ceiling < floor {
		ceiling = floor
	}

	exp := cbackoff.NewExponentialBackOff()
	exp.InitialInterval = floor
	exp.MaxInterval = ceiling
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	return &Controller{
		floor:   floor,
		ceiling: ceiling,
		exp:     exp,
	}
}

// OnFailure returns the delay to sleep now and advances the state.
func (c *Controller) OnFailure() time.Duration {
	return c.exp.NextBackOff()
}

// OnSuccess resets the delay to the floor.
func (c *Controller) OnSuccess() {
	c.exp.Reset()
}

// Floor returns the reset value.
func (c *Controller) Floor() time.Duration { return c.floor }

// Ceiling returns the cap.
func (c *Controller) Ceiling() time.Duration { return c.ceiling }
