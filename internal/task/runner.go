// Package task runs blocking calls on a bounded worker pool and reports
// their outcome as signals instead of raised errors.
package task

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStopped is the failure reported for work submitted after Stop.
var ErrStopped = errors.New("task runner stopped")

// Reporter publishes an intermediate value from inside a running task.
type Reporter func(v any)

// Func is the unit of work. The returned value becomes the result signal;
// a returned error or a panic becomes the error signal.
type Func func(ctx context.Context, report Reporter) (any, error)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Workers bounds concurrency. Zero means runtime.GOMAXPROCS(0).
	Workers int
	Logger  *slog.Logger

	// OnSignal observes every signal of every task, in emission order
	// per task. It runs on the worker goroutine.
	OnSignal func(h *Handle, sig Signal, o Outcome)

	// OnQueueChange observes the number of queued, not yet started tasks.
	OnQueueChange func(depth int)
}

type job struct {
	handle *Handle
	fn     Func
	queued time.Time
}

// Runner executes submitted functions off the caller's goroutine.
// Work is started in submission order; completion order across tasks is
// not guaranteed when more than one worker is configured.
type Runner struct {
	opts    RunnerOptions
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*job
	stopped bool

	nextID atomic.Uint64
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner and starts its workers.
func NewRunner(opts *RunnerOptions) *Runner {
	var o RunnerOptions
	if opts != nil {
		o = *opts
	}

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		opts:    o,
		workers: workers,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.cond = sync.NewCond(&r.mu)

	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.work()
	}

	logger.Info("Multithreading with maximum workers", "workers", workers)
	return r
}

// Workers returns the pool size.
func (r *Runner) Workers() int {
	return r.workers
}

// Submit enqueues fn and returns immediately.
func (r *Runner) Submit(name string, fn Func) *Handle {
	h := newHandle(r.nextID.Add(1), name)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		r.logger.Warn("Task rejected, runner stopped", "task", name, "task_id", h.id)
		h.resolve(Failed(failureFromError(ErrStopped)), r.opts.OnSignal)
		return h
	}
	r.queue = append(r.queue, &job{handle: h, fn: fn, queued: time.Now()})
	depth := len(r.queue)
	r.cond.Signal()
	r.mu.Unlock()

	r.queueChanged(depth)
	r.logger.Debug("Task submitted", "task", name, "task_id", h.id, "queued", depth)
	return h
}

// Pending returns the number of queued tasks that have not started.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Stop rejects new work, lets queued tasks finish, and waits for the workers.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.cond.Broadcast()
	r.mu.Unlock()

	r.logger.Info("Stopping task runner, draining queue")
	r.wg.Wait()
	r.cancel()
	r.logger.Info("Task runner stopped")
}

func (r *Runner) work() {
	defer r.wg.Done()

	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.stopped {
			r.cond.Wait()
		}
		if len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}
		j := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		depth := len(r.queue)
		r.mu.Unlock()

		r.queueChanged(depth)
		r.execute(j)
	}
}

func (r *Runner) execute(j *job) {
	h := j.handle
	started := time.Now()
	outcome := r.call(j)

	if outcome.OK() {
		r.logger.Debug("Task finished",
			"task", h.name,
			"task_id", h.id,
			"wait", started.Sub(j.queued),
			"duration", time.Since(started))
	} else {
		r.logger.Error("Task failed",
			"task", h.name,
			"task_id", h.id,
			"kind", outcome.Failure.Kind,
			"error", outcome.Failure.Message)
		r.logger.Debug("Task failure trace", "task_id", h.id, "trace", outcome.Failure.Trace)
	}

	h.resolve(outcome, r.opts.OnSignal)
}

// call runs the task function, converting errors and panics to data.
func (r *Runner) call(j *job) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = Failed(failureFromPanic(rec, debug.Stack()))
		}
	}()

	report := func(v any) { j.handle.report(v, r.opts.OnSignal) }
	value, err := j.fn(r.ctx, report)
	if err != nil {
		return Failed(failureFromError(err))
	}
	return Success(value)
}

func (r *Runner) queueChanged(depth int) {
	if r.opts.OnQueueChange != nil {
		r.opts.OnQueueChange(depth)
	}
}
