package reconcile

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Poller runs a fetch function on a cadence. The interval is re-evaluated
// every tick so callers can widen it while idle (2s in the lobby) and narrow
// it during play (1s). Fetch errors are logged and the next tick is the
// retry; the poller itself never gives up.
type Poller struct {
	Name     string
	Clock    clockwork.Clock
	Interval func() time.Duration
	Fetch    func(ctx context.Context) error
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	timer := p.Clock.NewTimer(p.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.Chan():
		}

		if err := p.Fetch(ctx); err != nil {
			log.Warn().Err(err).Str("poller", p.Name).Msg("poll failed; retrying next tick")
		}

		timer.Reset(p.Interval())
	}
}

// FixedInterval adapts a constant duration to the Poller interval hook.
func FixedInterval(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}
