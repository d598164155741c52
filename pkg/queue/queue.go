// Package queue runs background jobs outside the request path.
//
// Usage:
//
//	q := queue.NewManager(queue.NewMemoryDriver(), queue.Options{MaxRetry: 3})
//	jobs.Register(q, mailer, adminEmail) // registers jobs.OrderPlacedName
//	q.Start(ctx, 2)
//
//	q.Dispatch(ctx, &jobs.OrderPlaced{Order: resources.NewOrder(order)})
//
// A failing job is pushed back with a growing delay until MaxRetry attempts
// are spent, then recorded as failed.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Jobs are serialised to
// JSON between Dispatch and Handle, so dependencies are injected by the
// factory passed to Register, not carried in exported fields.
type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job choose the name it is registered under. Jobs without it
// use their Go type name.
type Named interface {
	JobName() string
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Payload  json.RawMessage
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. (nil, nil) means nothing arrived
	// before the driver's poll timeout.
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver can hold a payload back until delay has passed.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// Options tunes a Manager.
type Options struct {
	// MaxRetry is the total number of attempts per job. Defaults to 3.
	MaxRetry int
	// Backoff is multiplied by the attempt number between retries. Defaults to 1s.
	Backoff time.Duration
	// FailedStore persists exhausted jobs to the failed_jobs table when set.
	FailedStore *gorm.DB
	// FailedKeep caps the in-memory list behind FailedJobs; the oldest
	// entries are dropped first. Defaults to 100.
	FailedKeep int
}

// ------------------- Manager -------------------

// Manager is the queue hub: registry, dispatch and workers.
type Manager struct {
	driver   Driver
	maxRetry int
	backoff  time.Duration
	store    *gorm.DB
	keep     int

	mu       sync.RWMutex
	registry map[string]func() Job // type name → constructor
	failed   []FailedJob

	wg sync.WaitGroup
}

// NewManager returns a Manager on driver.
func NewManager(driver Driver, opts Options) *Manager {
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.FailedKeep <= 0 {
		opts.FailedKeep = 100
	}
	return &Manager{
		driver:   driver,
		maxRetry: opts.MaxRetry,
		backoff:  opts.Backoff,
		store:    opts.FailedStore,
		keep:     opts.FailedKeep,
		registry: map[string]func() Job{},
	}
}

// Register makes a job type available for deserialization by name.
// Call this once at boot for every job type.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// ------------------- Dispatch -------------------

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// Dispatch pushes job onto the queue immediately.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	env, err := newEnvelope(job)
	if err != nil {
		return err
	}
	return m.push(ctx, env, 0)
}

func jobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func newEnvelope(job Job) (envelope, error) {
	typeName := jobName(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return envelope{}, fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}
	return envelope{Type: typeName, Payload: payload}, nil
}

func (m *Manager) push(ctx context.Context, env envelope, delay time.Duration) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	if delay <= 0 {
		return m.driver.Push(ctx, raw)
	}
	if d, ok := m.driver.(DelayedDriver); ok {
		return d.PushDelayed(ctx, raw, delay)
	}

	time.AfterFunc(delay, func() {
		if err := m.driver.Push(context.Background(), raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", env.Type, "error", err)
		}
	})
	return nil
}

// ------------------- Worker -------------------

// Start launches n workers that process jobs until ctx is cancelled.
func (m *Manager) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

// Wait blocks until every worker started by Start has returned.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		raw, err := m.driver.Pop(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}
	env.Attempt++

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	start := time.Now()
	err := job.Handle(ctx)
	if err == nil {
		metrics.RecordQueueJob(env.Type, "success", start)
		logger.Info("queue: job processed", "type", env.Type, "attempt", env.Attempt)
		return
	}

	if env.Attempt < m.maxRetry && !errors.Is(err, ErrPermanent) {
		metrics.RecordQueueJob(env.Type, "retry", start)
		delay := time.Duration(env.Attempt) * m.backoff
		logger.Warn("queue: job failed, retrying",
			"type", env.Type, "attempt", env.Attempt, "retry_in", delay.String(), "error", err)
		perr := m.push(ctx, env, delay)
		if perr == nil {
			return
		}
		err = errors.Join(err, perr)
	}

	metrics.RecordQueueJob(env.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", env.Type, "attempts", env.Attempt, "error", err)
	m.persistFailed(ctx, env, err)
}

// ErrPermanent marks a job error that retrying cannot fix.
var ErrPermanent = errors.New("queue: permanent failure")

// FailedJobs returns a snapshot of the most recent jobs that failed in this
// process, oldest first.
func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
