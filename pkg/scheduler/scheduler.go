package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/hostncode/apphost-smoke/internal/models"
)

type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future delivers the result of one unit of work exactly once.
type Future[T any] struct {
	c      chan Result[T]
	cancel context.CancelFunc
}

// C returns the channel the result is delivered on. It is buffered, so the
// result is never lost if nobody is listening yet.
func (f *Future[T]) C() <-chan Result[T] {
	return f.c
}

// Stop cancels the context handed to the work function.
func (f *Future[T]) Stop() {
	f.cancel()
}

type workRequest[T any] struct {
	fn     Work[T]
	c      chan Result[T]
	ctx    context.Context
	cancel context.CancelFunc
}

// Scheduler runs work on at most nbWorkers goroutines, in submission order.
type Scheduler[T any] struct {
	lock       sync.Mutex
	workQueue  models.Queue[workRequest[T]]
	idle       int
	closed     bool
	running    sync.WaitGroup
	mainCtx    context.Context
	mainCancel context.CancelFunc
}

func NewScheduler[T any](nbWorkers int) *Scheduler[T] {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler[T]{
		idle:       nbWorkers,
		mainCtx:    ctx,
		mainCancel: cancel,
	}
}

func (s *Scheduler[T]) AddWork(w Work[T]) *Future[T] {
	c := make(chan Result[T], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)
	f := &Future[T]{c: c, cancel: cancel}

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		cancel()
		c <- Result[T]{Err: context.Canceled}
		return f
	}

	s.workQueue.Push(workRequest[T]{fn: w, c: c, ctx: ctx, cancel: cancel})
	s.dispatch()
	return f
}

// Close cancels queued and running work and waits for running work to return.
func (s *Scheduler[T]) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	pending := s.workQueue.Drain()
	s.lock.Unlock()

	for _, r := range pending {
		r.cancel()
		r.c <- Result[T]{Err: context.Canceled}
	}

	s.mainCancel()
	s.running.Wait()
}

// dispatch must be called with the lock held.
func (s *Scheduler[T]) dispatch() {
	for s.idle > 0 && s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		s.idle--
		s.running.Add(1)
		go s.work(r)
	}
}

func (s *Scheduler[T]) work(r workRequest[T]) {
	defer s.running.Done()

	r.c <- s.execute(r)
	r.cancel()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.idle++
	if !s.closed {
		s.dispatch()
	}
}

func (s *Scheduler[T]) execute(r workRequest[T]) (result Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			result = Result[T]{Err: fmt.Errorf("worker panicked: %v", p)}
		}
	}()

	v, err := r.fn(r.ctx)
	return Result[T]{Data: v, Err: err}
}
