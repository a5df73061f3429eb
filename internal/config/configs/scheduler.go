package configs

import "time"

// Scheduler configures the periodic driver that processes queues and
// activation boundaries.
type Scheduler struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1m"`
	// TickTimeout caps a single pass. Zero means TickInterval.
	TickTimeout time.Duration `env:"TICK_TIMEOUT" envDefault:"0s"`
}

// Timeout returns the effective per-pass deadline.
func (c Scheduler) Timeout() time.Duration {
	if c.TickTimeout > 0 {
		return c.TickTimeout
	}
	return c.TickInterval
}
