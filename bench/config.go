package bench

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/beviu/cr18-project/udp"
	"github.com/beviu/cr18-project/uring"
)

// Halt policies for a failed run.
const (
	// HaltOnError stops the sequence at the first failed run.
	HaltOnError = "halt"
	// HaltContinue logs the failure and moves to the next configuration.
	HaltContinue = "continue"
)

var (
	ErrInvalidDestination  = errors.New("destination must be host:port")
	ErrInvalidDuration     = errors.New("duration must be positive")
	ErrInvalidBufferSize   = errors.New("buffer size must be positive")
	ErrInvalidQueueDepth   = errors.New("queue depth must be positive")
	ErrInvalidRingEntries  = errors.New("ring entries out of range")
	ErrInvalidPoolCapacity = errors.New("pool capacity must be positive")
	ErrInvalidHaltPolicy   = errors.New(`halt policy must be "halt" or "continue"`)
)

// Config carries the harness parameters. Values come from SENDBENCH_*
// environment variables; the CLI layers flag overrides on top.
type Config struct {
	Dest         string        `envconfig:"DEST" default:"127.0.0.1:12000"`
	Duration     time.Duration `envconfig:"DURATION" default:"1s"`
	BufSize      int           `envconfig:"BUF_SIZE" default:"16"`
	QueueDepth   int           `envconfig:"QUEUE_DEPTH" default:"8"`
	RingEntries  uint          `envconfig:"RING_ENTRIES" default:"32"`
	PoolCapacity int           `envconfig:"POOL_CAPACITY" default:"256"`
	HaltPolicy   string        `envconfig:"HALT_POLICY" default:"halt"`
	MetricsAddr  string        `envconfig:"METRICS_ADDR" default:""`
	RunsFile     string        `envconfig:"RUNS_FILE" default:""`
	Simulate     bool          `envconfig:"SIMULATE" default:"false"`
	Debug        bool          `envconfig:"DEBUG" default:"false"`
}

// FromEnv builds a validated Config from the environment.
func FromEnv() (Config, error) {
	var c Config
	if err := envconfig.Process("sendbench", &c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, err := udp.ParseSockaddr(c.Dest); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, c.Dest)
	}
	if c.Duration <= 0 {
		return ErrInvalidDuration
	}
	if c.BufSize <= 0 {
		return ErrInvalidBufferSize
	}
	if c.QueueDepth <= 0 {
		return ErrInvalidQueueDepth
	}
	if c.RingEntries < uring.MinSize || c.RingEntries > uring.MaxSize {
		return fmt.Errorf("%w: %d", ErrInvalidRingEntries, c.RingEntries)
	}
	if c.PoolCapacity <= 0 {
		return ErrInvalidPoolCapacity
	}
	switch c.HaltPolicy {
	case HaltOnError, HaltContinue:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHaltPolicy, c.HaltPolicy)
	}
	return nil
}
