package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/pkg/scheduler"
)

// gauge tracks how many scenarios run at the same time.
type gauge struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (g *gauge) enter() {
	n := g.current.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *gauge) leave() { g.current.Add(-1) }

var _ = Describe("Scheduler", func() {
	var s *scheduler.Scheduler[string]

	AfterEach(func() {
		if s != nil {
			s.Close()
		}
	})

	receive := func(f *scheduler.Future[string]) scheduler.Result[string] {
		var r scheduler.Result[string]
		Eventually(f.C(), 2*time.Second).Should(Receive(&r))
		return r
	}

	It("delivers the result of the work on its future", func() {
		s = scheduler.NewScheduler[string](1)

		r := receive(s.AddWork(func(ctx context.Context) (string, error) {
			return "HomePage_ReturnsOkStatusCode", nil
		}))

		Expect(r.Err).ToNot(HaveOccurred())
		Expect(r.Data).To(Equal("HomePage_ReturnsOkStatusCode"))
	})

	It("delivers the error of the work", func() {
		s = scheduler.NewScheduler[string](1)
		boom := errors.New("health-wait timed out")

		r := receive(s.AddWork(func(ctx context.Context) (string, error) {
			return "", boom
		}))

		Expect(r.Err).To(MatchError(boom))
	})

	DescribeTable("never runs more work than it has workers",
		func(workers, items int) {
			// Arrange
			s = scheduler.NewScheduler[string](workers)
			g := &gauge{}
			release := make(chan struct{})

			// Act
			futures := make([]*scheduler.Future[string], 0, items)
			for range items {
				futures = append(futures, s.AddWork(func(ctx context.Context) (string, error) {
					g.enter()
					defer g.leave()
					<-release
					return "ok", nil
				}))
			}
			expected := min(workers, items)
			Eventually(g.current.Load).Should(BeEquivalentTo(expected))
			Consistently(g.current.Load, 100*time.Millisecond).Should(BeEquivalentTo(expected))
			close(release)

			// Assert
			for _, f := range futures {
				Expect(receive(f).Err).ToNot(HaveOccurred())
			}
			Expect(g.peak.Load()).To(BeEquivalentTo(expected))
		},
		Entry("single worker", 1, 3),
		Entry("more work than workers", 2, 5),
		Entry("more workers than work", 4, 3),
	)

	It("treats a worker count below one as one", func() {
		s = scheduler.NewScheduler[string](0)

		Expect(receive(s.AddWork(func(ctx context.Context) (string, error) {
			return "ran", nil
		})).Data).To(Equal("ran"))
	})

	It("starts queued work in submission order", func() {
		s = scheduler.NewScheduler[string](1)
		var (
			lock  sync.Mutex
			order []string
		)
		gate := make(chan struct{})

		first := s.AddWork(func(ctx context.Context) (string, error) {
			<-gate
			return "", nil
		})
		names := []string{"/", "/services", "/about"}
		futures := make([]*scheduler.Future[string], 0, len(names))
		for _, n := range names {
			futures = append(futures, s.AddWork(func(ctx context.Context) (string, error) {
				lock.Lock()
				defer lock.Unlock()
				order = append(order, n)
				return n, nil
			}))
		}
		close(gate)

		receive(first)
		for _, f := range futures {
			receive(f)
		}
		Expect(order).To(Equal(names))
	})

	It("cancels the context of work whose future is stopped", func() {
		s = scheduler.NewScheduler[string](1)
		started := make(chan struct{})

		f := s.AddWork(func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
		Eventually(started).Should(BeClosed())
		f.Stop()

		Expect(receive(f).Err).To(MatchError(context.Canceled))
	})

	Describe("Close", func() {
		It("cancels running work and fails queued work", func() {
			s = scheduler.NewScheduler[string](1)
			started := make(chan struct{})

			running := s.AddWork(func(ctx context.Context) (string, error) {
				close(started)
				<-ctx.Done()
				return "", ctx.Err()
			})
			var queuedRan atomic.Bool
			queued := s.AddWork(func(ctx context.Context) (string, error) {
				queuedRan.Store(true)
				return "", nil
			})
			Eventually(started).Should(BeClosed())

			s.Close()

			Expect(receive(running).Err).To(MatchError(context.Canceled))
			Expect(receive(queued).Err).To(MatchError(context.Canceled))
			Expect(queuedRan.Load()).To(BeFalse())
		})

		It("waits for running work to return", func() {
			s = scheduler.NewScheduler[string](1)
			started := make(chan struct{})
			var finished atomic.Bool

			s.AddWork(func(ctx context.Context) (string, error) {
				close(started)
				<-ctx.Done()
				time.Sleep(50 * time.Millisecond)
				finished.Store(true)
				return "", nil
			})
			Eventually(started).Should(BeClosed())

			s.Close()

			Expect(finished.Load()).To(BeTrue())
		})

		It("fails work added afterwards", func() {
			s = scheduler.NewScheduler[string](1)
			s.Close()

			r := receive(s.AddWork(func(ctx context.Context) (string, error) {
				return "late", nil
			}))

			Expect(r.Err).To(MatchError(context.Canceled))
		})

		It("can be called twice", func() {
			s = scheduler.NewScheduler[string](2)
			s.Close()
			Expect(s.Close).ToNot(Panic())
		})
	})

	It("turns a panic into an error and keeps serving", func() {
		s = scheduler.NewScheduler[string](1)

		r := receive(s.AddWork(func(ctx context.Context) (string, error) {
			panic("resource constructor blew up")
		}))
		Expect(r.Err).To(MatchError(ContainSubstring("worker panicked: resource constructor blew up")))

		Expect(receive(s.AddWork(func(ctx context.Context) (string, error) {
			return "still running", nil
		})).Data).To(Equal("still running"))
	})
})
