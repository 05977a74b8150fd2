// Package debounce runs trailing, per-key deferred jobs.
//
// Each key owns at most one pending timer. Scheduling a key again stops the
// pending timer before arming a new one, and a timer that lost the race to a
// replacement finds a newer generation and does nothing. Jobs for different
// keys run concurrently; runs of the same key are serialized.
package debounce

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrClosed is returned when scheduling on a closed scheduler.
var ErrClosed = errors.New("debounce: scheduler closed")

// Job is deferred work. It receives a context bounded by the scheduler timeout.
type Job func(ctx context.Context) error

// Options configure a Scheduler.
type Options struct {
	// Delay is the trailing debounce window.
	Delay time.Duration
	// Timeout bounds a single job run; zero means no bound.
	Timeout time.Duration
	// OnError observes failed runs.
	OnError func(key string, err error)
}

type entry struct {
	gen   uint64
	timer *time.Timer
	job   Job
}

// Scheduler debounces jobs by key.
type Scheduler struct {
	opts Options

	mu       sync.Mutex
	idle     *sync.Cond
	gen      uint64
	pending  map[string]*entry
	runLocks map[string]*sync.Mutex
	active   map[string]int
	inflight int
	closed   bool
}

// New constructs a scheduler.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		opts:     opts,
		pending:  make(map[string]*entry),
		runLocks: make(map[string]*sync.Mutex),
		active:   make(map[string]int),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Schedule arms job under key, replacing any pending job of the same key.
func (s *Scheduler) Schedule(key string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
		delete(s.pending, key)
	}
	s.gen++
	gen := s.gen
	e := &entry{gen: gen, job: job}
	s.pending[key] = e
	e.timer = time.AfterFunc(s.opts.Delay, func() { s.fire(key, gen) })
	return nil
}

// Pending reports how many keys wait for their timer.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CancelPrefix stops every pending job whose key starts with prefix, waits for
// in-flight runs of those keys, and returns the cancelled jobs so a caller can
// re-arm them.
func (s *Scheduler) CancelPrefix(prefix string) map[string]Job {
	s.mu.Lock()
	cancelled := make(map[string]Job)
	for key, e := range s.pending {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e.timer.Stop()
		delete(s.pending, key)
		cancelled[key] = e.job
	}
	for s.activeWithPrefix(prefix) {
		s.idle.Wait()
	}
	s.mu.Unlock()
	return cancelled
}

func (s *Scheduler) activeWithPrefix(prefix string) bool {
	for key, n := range s.active {
		if n > 0 && strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// Flush runs every pending job now and waits for all runs to finish.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
		lock := s.begin(key)
		go s.run(key, e.job, lock)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.mu.Lock()
		for s.inflight > 0 {
			s.idle.Wait()
		}
		s.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending jobs and rejects further scheduling.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	e, ok := s.pending[key]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	lock := s.begin(key)
	s.mu.Unlock()
	s.run(key, e.job, lock)
}

// begin registers a run of key and returns its serializing lock. s.mu must be held.
func (s *Scheduler) begin(key string) *sync.Mutex {
	lock := s.runLocks[key]
	if lock == nil {
		lock = &sync.Mutex{}
		s.runLocks[key] = lock
	}
	s.active[key]++
	s.inflight++
	return lock
}

func (s *Scheduler) run(key string, job Job, lock *sync.Mutex) {
	defer func() {
		s.mu.Lock()
		s.inflight--
		if s.active[key]--; s.active[key] == 0 {
			delete(s.active, key)
			delete(s.runLocks, key)
		}
		s.idle.Broadcast()
		s.mu.Unlock()
	}()

	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	if err := job(ctx); err != nil && s.opts.OnError != nil {
		s.opts.OnError(key, err)
	}
}
