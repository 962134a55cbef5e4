package form

import (
	"context"
	"sync"
	"time"
)

// tasks is the event loop of a form. Macrotasks may be posted from any
// goroutine and run when the owning goroutine calls RunPending or Run.
// Microtasks run when the outermost form operation returns.
type tasks struct {
	mu    sync.Mutex
	macro []func()
	wake  chan struct{}

	micro    []func()
	depth    int
	draining bool
}

func newTasks() *tasks {
	return &tasks{wake: make(chan struct{}, 1)}
}

func (t *tasks) post(fn func()) {
	t.mu.Lock()
	t.macro = append(t.macro, fn)
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *tasks) later(fn func()) {
	t.micro = append(t.micro, fn)
}

// enter marks the start of a form operation. The returned function marks its
// end and drains microtasks once no operation is in progress.
func (t *tasks) enter() func() {
	t.depth++
	return func() {
		t.depth--
		if t.depth == 0 {
			t.drain()
		}
	}
}

func (t *tasks) drain() {
	if t.draining {
		return
	}
	t.draining = true
	defer func() { t.draining = false }()
	for len(t.micro) > 0 {
		fn := t.micro[0]
		t.micro = t.micro[1:]
		done := t.enter()
		fn()
		done()
	}
}

func (t *tasks) runPending() int {
	t.mu.Lock()
	queue := t.macro
	t.macro = nil
	t.mu.Unlock()
	for _, fn := range queue {
		done := t.enter()
		fn()
		done()
	}
	return len(queue)
}

func (t *tasks) run(ctx context.Context) error {
	for {
		t.runPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		}
	}
}

// debouncer delays a call until no new call arrived for the configured
// interval. Only the last call of a burst runs.
type debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64
	post  func(func())
}

func (d *debouncer) call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.post(func() {
			d.mu.Lock()
			current := d.seq == seq
			d.mu.Unlock()
			if current {
				fn()
			}
		})
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
}
