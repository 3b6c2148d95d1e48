package task

import (
	"context"
	"slices"
	"sync"
)

// Handle tracks one submitted task. Callbacks registered after the task
// completed are invoked immediately, so a late registration never misses
// a signal. For a single handle the result or error callbacks always run
// before the done callbacks.
type Handle struct {
	id   uint64
	name string

	mu         sync.Mutex
	outcome    *Outcome
	finished   bool
	done       chan struct{}
	onProgress []func(any)
	onResult   []func(any)
	onError    []func(Failure)
	onDone     []func()
}

func newHandle(id uint64, name string) *Handle {
	return &Handle{
		id:   id,
		name: name,
		done: make(chan struct{}),
	}
}

// ID returns the runner-assigned task identifier.
func (h *Handle) ID() uint64 { return h.id }

// Name returns the label given at submission.
func (h *Handle) Name() string { return h.name }

// OnProgress registers a callback for intermediate values reported by the task.
func (h *Handle) OnProgress(fn func(any)) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outcome == nil {
		h.onProgress = append(h.onProgress, fn)
	}
	return h
}

// OnResult registers a callback for a successful return value.
func (h *Handle) OnResult(fn func(any)) *Handle {
	h.mu.Lock()
	outcome := h.outcome
	if outcome == nil {
		h.onResult = append(h.onResult, fn)
	}
	h.mu.Unlock()

	if outcome != nil && outcome.OK() {
		fn(outcome.Value)
	}
	return h
}

// OnError registers a callback for a failure.
func (h *Handle) OnError(fn func(Failure)) *Handle {
	h.mu.Lock()
	outcome := h.outcome
	if outcome == nil {
		h.onError = append(h.onError, fn)
	}
	h.mu.Unlock()

	if outcome != nil && !outcome.OK() {
		fn(*outcome.Failure)
	}
	return h
}

// OnDone registers a callback that runs once after the task finished,
// whatever the outcome.
func (h *Handle) OnDone(fn func()) *Handle {
	h.mu.Lock()
	finished := h.finished
	if !finished {
		h.onDone = append(h.onDone, fn)
	}
	h.mu.Unlock()

	if finished {
		fn()
	}
	return h
}

// Done is closed once the task finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Outcome returns the outcome once available.
func (h *Handle) Outcome() (Outcome, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outcome == nil {
		return Outcome{}, false
	}
	return *h.outcome, true
}

// Wait blocks until the task finished or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		o, _ := h.Outcome()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// report delivers an intermediate value. It is the reporter injected into
// the task function.
func (h *Handle) report(v any, notify func(*Handle, Signal, Outcome)) {
	h.mu.Lock()
	if h.outcome != nil {
		h.mu.Unlock()
		return
	}
	callbacks := slices.Clone(h.onProgress)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(v)
	}
	if notify != nil {
		notify(h, SignalProgress, Success(v))
	}
}

// resolve stores the outcome and emits result or error, then finished.
func (h *Handle) resolve(o Outcome, notify func(*Handle, Signal, Outcome)) {
	h.mu.Lock()
	if h.outcome != nil {
		h.mu.Unlock()
		return
	}
	h.outcome = &o
	results := h.onResult
	errs := h.onError
	h.onResult, h.onError, h.onProgress = nil, nil, nil
	h.mu.Unlock()

	if o.OK() {
		for _, fn := range results {
			fn(o.Value)
		}
		if notify != nil {
			notify(h, SignalResult, o)
		}
	} else {
		for _, fn := range errs {
			fn(*o.Failure)
		}
		if notify != nil {
			notify(h, SignalError, o)
		}
	}

	h.mu.Lock()
	h.finished = true
	dones := h.onDone
	h.onDone = nil
	h.mu.Unlock()
	close(h.done)

	for _, fn := range dones {
		fn()
	}
	if notify != nil {
		notify(h, SignalFinished, o)
	}
}
