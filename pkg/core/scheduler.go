// Package core runs the service's background maintenance: a single
// heartbeat loop evaluates registered jobs and fires the ones that are
// due. Jobs are fire-and-forget with a re-entry guard, so a slow prune
// never stalls the loop or overlaps itself.
package core

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTick is the heartbeat interval. Jobs carry their own cadence;
// the tick only bounds how promptly a due job is noticed.
const DefaultTick = 30 * time.Second

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(now time.Time) bool
	Run(ctx context.Context)
}

// Scheduler owns the heartbeat and the registered jobs.
type Scheduler struct {
	interval time.Duration
	jobs     []Job
}

// NewScheduler creates a scheduler. interval <= 0 selects DefaultTick.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTick
	}
	return &Scheduler{interval: interval}
}

// AddJob registers a job. Not safe to call after Start.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the heartbeat until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", s.interval, "jobs", len(s.jobs))

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	for _, job := range s.jobs {
		if job.ShouldFire(now) {
			// Fire and forget; the job's own lock prevents overlap
			go job.Run(ctx)
		}
	}
}

// BaseJob provides the atomic running flag that prevents re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to mark the job running. Returns true on success.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

// TimeJob fires its action on a fixed cadence. The first tick fires
// immediately so maintenance runs once at startup.
type TimeJob struct {
	BaseJob
	mu        sync.Mutex
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context)
	firstRun  bool
}

func NewTimeJob(name string, threshold time.Duration, action func(context.Context)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
		firstRun:  true,
	}
}

func (j *TimeJob) ShouldFire(now time.Time) bool {
	if atomic.LoadInt32(&j.running) == 1 {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.firstRun {
		return true
	}
	return now.Sub(j.lastTime) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.mu.Lock()
	j.lastTime = time.Now()
	j.firstRun = false
	j.mu.Unlock()

	j.action(ctx)
}
