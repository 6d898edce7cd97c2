// Package simulate drives a checkpoint tracker with a synthetic checkpoint coordinator.
//
// Each step finishes the checkpoint triggered by the previous step, completing or
// failing it at random, and then triggers the next one. All randomness comes
// from a seeded generator, so a given seed always produces the same sequence.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
)

// Defaults.
const (
	DefaultInterval       = 2 * time.Second
	DefaultFailureRate    = 0.1
	DefaultSavepointEvery = 5

	baseStateSize   = 8 << 20
	stateGrowth     = 256 << 10
	stateJitter     = 1 << 20
	maxAlignmentPct = 10
	minDurationPct  = 20
	maxDurationPct  = 90
)

// Config validation errors.
var (
	ErrInvalidInterval    = errors.New("simulation interval must be positive")
	ErrInvalidFailureRate = errors.New("simulation failure rate must be within [0, 1]")
	ErrInvalidSavepoint   = errors.New("simulation savepoint period must not be negative")
)

var failureCauses = []string{
	"Checkpoint expired before completing.",
	"Task declined the checkpoint: barrier alignment aborted.",
	"Checkpoint storage is unavailable.",
	"Job is shutting down.",
}

// Config describes the synthetic workload.
type Config struct {
	JobID string

	// Interval between checkpoint triggers.
	Interval time.Duration

	// FailureRate is the probability that a checkpoint fails.
	FailureRate float64

	// SavepointEvery makes every n-th checkpoint a savepoint. Zero disables savepoints.
	SavepointEvery int

	// RestoreOnStart reports a restore from a retained checkpoint before the first trigger.
	RestoreOnStart bool

	Seed uint64
}

// DefaultConfig returns a config for jobID with default settings.
func DefaultConfig(jobID string) Config {
	return Config{
		JobID:          jobID,
		Interval:       DefaultInterval,
		FailureRate:    DefaultFailureRate,
		SavepointEvery: DefaultSavepointEvery,
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, c.Interval)
	}

	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFailureRate, c.FailureRate)
	}

	if c.SavepointEvery < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSavepoint, c.SavepointEvery)
	}

	return nil
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// Observer is notified when a simulated checkpoint finishes.
type Observer interface {
	CheckpointCompleted(ctx context.Context, jobID string, duration time.Duration, stateSize int64)
	CheckpointFailed(ctx context.Context, jobID string, duration time.Duration)
}

// WithObserver registers an observer of finished checkpoints.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		c.observer = o
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

type pending struct {
	triggeredAt time.Time
	id          int64
	savepoint   bool
}

// Coordinator emits checkpoint lifecycle events into a tracker.
// It is not safe for concurrent use; Run owns it until it returns.
type Coordinator struct {
	tracker  *checkpoint.Tracker
	observer Observer
	rng      *rand.Rand
	logger   *slog.Logger
	now      func() time.Time
	current  *pending
	cfg      Config
	nextID   int64
}

// New creates a coordinator reporting into tracker.
func New(tracker *checkpoint.Tracker, cfg Config, opts ...Option) (*Coordinator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		tracker: tracker,
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		logger:  slog.Default(),
		now:     time.Now,
		nextID:  1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Run restores if configured, then steps once per interval until ctx is done.
// The checkpoint in flight at cancellation stays in progress.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx = observability.ContextWithJobID(ctx, c.cfg.JobID)

	c.logger.InfoContext(ctx, "checkpoint simulation started",
		"interval", c.cfg.Interval,
		"failure_rate", c.cfg.FailureRate,
	)

	if c.cfg.RestoreOnStart {
		err := c.Restore(c.now())
		if err != nil {
			return err
		}
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "checkpoint simulation stopped", "next_id", c.nextID)

			return nil
		case <-ticker.C:
			err := c.Step(ctx, c.now())
			if err != nil {
				return err
			}
		}
	}
}

// Restore reports a restore from a retained checkpoint of a previous run.
func (c *Coordinator) Restore(at time.Time) error {
	err := c.tracker.ReportRestored(checkpoint.Restore{
		CheckpointID: 0,
		RestoredAt:   at,
		ExternalPath: fmt.Sprintf("file:///checkpoints/%s/retained", c.cfg.JobID),
	})
	if err != nil {
		return fmt.Errorf("simulate restore: %w", err)
	}

	return nil
}

// Step finishes the checkpoint in flight, if any, and triggers the next one at now.
func (c *Coordinator) Step(ctx context.Context, now time.Time) error {
	if c.current != nil {
		err := c.finish(ctx, *c.current, now)
		if err != nil {
			return err
		}

		c.current = nil
	}

	next := pending{
		id:          c.nextID,
		triggeredAt: now,
		savepoint:   c.cfg.SavepointEvery > 0 && c.nextID%int64(c.cfg.SavepointEvery) == 0,
	}

	err := c.tracker.ReportTriggered(next.id, next.triggeredAt)
	if err != nil {
		return fmt.Errorf("simulate trigger %d: %w", next.id, err)
	}

	c.current = &next
	c.nextID++

	return nil
}

func (c *Coordinator) finish(ctx context.Context, p pending, deadline time.Time) error {
	window := deadline.Sub(p.triggeredAt)
	duration := window * time.Duration(minDurationPct+c.rng.IntN(maxDurationPct-minDurationPct+1)) / 100
	finishedAt := p.triggeredAt.Add(duration)

	if c.rng.Float64() < c.cfg.FailureRate {
		cause := failureCauses[c.rng.IntN(len(failureCauses))]

		err := c.tracker.ReportFailed(p.id, cause, finishedAt)
		if err != nil {
			return fmt.Errorf("simulate failure %d: %w", p.id, err)
		}

		c.logger.DebugContext(ctx, "checkpoint failed", "checkpoint_id", p.id, "cause", cause)

		if c.observer != nil {
			c.observer.CheckpointFailed(ctx, c.cfg.JobID, duration)
		}

		return nil
	}

	completion := checkpoint.Completion{
		CompletedAt:       finishedAt,
		StateSize:         baseStateSize + p.id*stateGrowth + c.rng.Int64N(stateJitter),
		AlignmentDuration: duration * time.Duration(c.rng.IntN(maxAlignmentPct+1)) / 100,
		AlignmentBuffered: c.rng.Int64N(stateJitter),
		Savepoint:         p.savepoint,
	}

	if p.savepoint {
		completion.ExternalPath = fmt.Sprintf("file:///savepoints/%s/savepoint-%d", c.cfg.JobID, p.id)
	}

	err := c.tracker.ReportCompleted(p.id, completion)
	if err != nil {
		return fmt.Errorf("simulate completion %d: %w", p.id, err)
	}

	c.logger.DebugContext(ctx, "checkpoint completed",
		"checkpoint_id", p.id,
		"duration", duration,
		"state_size", completion.StateSize,
	)

	if c.observer != nil {
		c.observer.CheckpointCompleted(ctx, c.cfg.JobID, duration, completion.StateSize)
	}

	return nil
}
