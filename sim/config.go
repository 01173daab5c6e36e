package sim

import "time"

// Config bounds one Simulation's execution (spec §6.1 SimConfig).
type Config struct {
	MaxEventsPerInstant uint64
	MaxEventsPerRun     uint64 // 0 = unlimited
	RunTimeout          time.Duration
}

// Builder constructs a Config through chained WithX calls, following
// config/config.go's DeviceBuilder value-receiver chaining idiom.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with the documented defaults (spec
// §6.1: max_events_per_instant 10_000, max_events_per_run unlimited,
// timeout none).
func NewBuilder() Builder {
	return Builder{cfg: Config{MaxEventsPerInstant: 10_000}}
}

// WithMaxEventsPerInstant sets the oscillation guard (spec §4.4).
func (b Builder) WithMaxEventsPerInstant(n uint64) Builder {
	b.cfg.MaxEventsPerInstant = n
	return b
}

// WithMaxEventsPerRun sets the per-run event budget guard. 0 leaves it
// unlimited.
func (b Builder) WithMaxEventsPerRun(n uint64) Builder {
	b.cfg.MaxEventsPerRun = n
	return b
}

// WithTimeout sets the wall-clock guard for Run. Zero leaves it disabled.
func (b Builder) WithTimeout(d time.Duration) Builder {
	b.cfg.RunTimeout = d
	return b
}

// Build returns the assembled Config.
func (b Builder) Build() Config {
	return b.cfg
}
