// Package worker provides a fixed-size worker pool that bounds how many
// generate calls the server runs against upstream backends at once.
//
// Requests beyond the worker count wait in a bounded queue; once the queue is
// full new jobs are rejected instead of piling up behind slow upstreams.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/switchboard/pkg/logger"
)

var (
	defaultNumWorkers   uint = 8
	defaultJobQueueSize uint = 64
)

// ErrQueueFull is returned by Do when the job could not be queued.
var ErrQueueFull = errors.New("worker queue full")

// Job is a unit of work for the worker pool to execute.
type Job struct {
	// Ctx is passed to Run. Nil means context.Background().
	Ctx context.Context

	// Selection is the requested selection key, for logs.
	Selection string

	Run func(ctx context.Context)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of concurrent generate calls (defaults to 8).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	Logger *slog.Logger
}

// Pool runs jobs on a fixed set of worker goroutines.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "selection", job.Selection, "queued", len(p.queue))
		return true
	default:
		p.logger.Warn("job not queued, queue full", "selection", job.Selection, "capacity", cap(p.queue))
		return false
	}
}

// Do queues fn and blocks until it has run. It returns ErrQueueFull without
// running fn when the queue has no room. fn is expected to observe ctx.
func (p *Pool) Do(ctx context.Context, selection string, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	ok := p.Enqueue(Job{
		Ctx:       ctx,
		Selection: selection,
		Run: func(ctx context.Context) {
			defer close(done)
			fn(ctx)
		},
	})
	if !ok {
		return ErrQueueFull
	}

	<-done
	return nil
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped
// accepting requests.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.run(id, job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// run executes one job, keeping the worker alive if it panics.
func (p *Pool) run(id uint, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker_id", id, "selection", job.Selection, "panic", r)
		}
	}()

	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	job.Run(ctx)
}
