// Package worker records finished track profiles in the background.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ewilliams-labs/tracklens/internal/core/domain"
	"github.com/ewilliams-labs/tracklens/internal/core/ports"
)

const saveTimeout = 5 * time.Second

// Job is one profile waiting to be written to history.
type Job struct {
	Profile domain.TrackProfile
}

// Pool manages background workers that persist profiles.
type Pool struct {
	history ports.ProfileHistory
	jobs    chan Job
	wg      sync.WaitGroup
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// compile-time interface assertion
var _ ports.ProfileRecorder = (*Pool)(nil)

// NewPool creates a worker pool with the given queue size.
func NewPool(history ports.ProfileHistory, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		history: history,
		jobs:    make(chan Job, queueSize),
		log:     slog.Default().With("component", "worker"),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop drains the queue and waits for workers to finish. Later submissions
// are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.Warn("dropping profile, pool stopped", "profile_id", job.Profile.ID)
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.log.Warn("dropping profile, queue full", "profile_id", job.Profile.ID)
		return false
	}
}

// Record implements ports.ProfileRecorder.
func (p *Pool) Record(profile domain.TrackProfile) {
	p.Submit(Job{Profile: profile.Clone()})
}

func (p *Pool) processJob(job Job) {
	if job.Profile.ID == "" {
		p.log.Warn("skipping profile without id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := p.history.Save(ctx, job.Profile); err != nil {
		p.log.Warn("failed to record profile", "profile_id", job.Profile.ID, "error", err)
		return
	}
	p.log.Debug("recorded profile", "profile_id", job.Profile.ID, "title", job.Profile.Title)
}
