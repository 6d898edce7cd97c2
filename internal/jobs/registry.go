// Package jobs maps running jobs to their checkpoint statistics trackers.
package jobs

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Sumatoshi-tech/checkstat/pkg/checkpoint"
)

// Sentinel lookup errors.
var (
	ErrJobNotFound         = errors.New("job not found")
	ErrCheckpointsDisabled = errors.New("checkpointing has not been enabled")
	ErrJobExists           = errors.New("job already registered")
)

// Job describes a registered job.
type Job struct {
	ID                 string
	CheckpointsEnabled bool
}

// Registry holds one tracker per job. A job registered without a tracker has
// checkpointing disabled. Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*checkpoint.Tracker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*checkpoint.Tracker)}
}

// Register adds a job. Pass a nil tracker for a job without checkpointing.
func (r *Registry) Register(jobID string, tracker *checkpoint.Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trackers[jobID]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, jobID)
	}

	r.trackers[jobID] = tracker

	return nil
}

// Tracker returns the tracker of jobID. It returns ErrJobNotFound for an
// unknown job and ErrCheckpointsDisabled for a job without a tracker.
func (r *Registry) Tracker(jobID string) (*checkpoint.Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tracker, ok := r.trackers[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if tracker == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointsDisabled, jobID)
	}

	return tracker, nil
}

// Snapshot returns a snapshot of jobID's tracker, with the same errors as Tracker.
func (r *Registry) Snapshot(jobID string) (checkpoint.Snapshot, error) {
	tracker, err := r.Tracker(jobID)
	if err != nil {
		return checkpoint.Snapshot{}, err
	}

	return tracker.Snapshot(), nil
}

// Jobs lists registered jobs sorted by id.
func (r *Registry) Jobs() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.trackers))

	for id, tracker := range r.trackers {
		out = append(out, Job{ID: id, CheckpointsEnabled: tracker != nil})
	}

	slices.SortFunc(out, func(a, b Job) int { return cmp.Compare(a.ID, b.ID) })

	return out
}

// Each calls fn for every job with checkpointing enabled. fn must not call
// back into the registry.
func (r *Registry) Each(fn func(jobID string, tracker *checkpoint.Tracker)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, tracker := range r.trackers {
		if tracker != nil {
			fn(id, tracker)
		}
	}
}
