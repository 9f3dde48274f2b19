package guard_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
	"github.com/hostncode/apphost-smoke/pkg/guard"
)

var _ = Describe("Timeout guard", func() {
	Context("operation completes in time", func() {
		It("returns the result", func() {
			v, err := guard.Run(context.Background(), "build", "", time.Second, func(ctx context.Context) (int, error) {
				return 42, nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(42))
		})

		It("returns the operation error untouched", func() {
			boom := errors.New("boom")
			err := guard.Do(context.Background(), "start", "", time.Second, func(ctx context.Context) error {
				return boom
			})
			Expect(err).To(MatchError(boom))
		})

		It("cancels the operation context once it returns", func() {
			var opCtx context.Context
			err := guard.Do(context.Background(), "start", "", time.Second, func(ctx context.Context) error {
				opCtx = ctx
				return nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(opCtx.Err()).To(HaveOccurred())
		})
	})

	Context("operation hangs", func() {
		// Given an operation that blocks until its context is cancelled
		// When the ceiling elapses
		// Then a TimeoutError naming the phase is returned and the operation sees cancellation
		It("fails with a timeout and cancels the operation", func() {
			// Arrange
			cancelled := make(chan struct{})

			// Act
			start := time.Now()
			err := guard.Do(context.Background(), "health-wait", "webfrontend", 50*time.Millisecond, func(ctx context.Context) error {
				<-ctx.Done()
				close(cancelled)
				return ctx.Err()
			})

			// Assert
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(srvErrors.IsTimeoutError(err)).To(BeTrue())

			var te *srvErrors.TimeoutError
			Expect(errors.As(err, &te)).To(BeTrue())
			Expect(te.Phase).To(Equal("health-wait"))
			Expect(te.Resource).To(Equal("webfrontend"))
			Expect(te.Timeout).To(Equal(50 * time.Millisecond))
			Eventually(cancelled).Should(BeClosed())
		})

		It("does not wait for an operation ignoring its context", func() {
			release := make(chan struct{})
			defer close(release)

			err := guard.Do(context.Background(), "build", "", 20*time.Millisecond, func(ctx context.Context) error {
				<-release
				return nil
			})
			Expect(srvErrors.IsTimeoutError(err)).To(BeTrue())
		})
	})

	Context("operation fails as its context expires", func() {
		// Given an operation that returns its own error once its context is done
		// When the ceiling elapses
		// Then the failure is always reported as a timeout
		It("reports a timeout every time", func() {
			for range 20 {
				err := guard.Do(context.Background(), "start", "webfrontend", 10*time.Millisecond, func(ctx context.Context) error {
					<-ctx.Done()
					return errors.New("connection reset by peer")
				})
				Expect(srvErrors.IsTimeoutError(err)).To(BeTrue(), "got %v", err)
			}
		})

		It("reports the parent cancellation every time", func() {
			for range 20 {
				ctx, cancel := context.WithCancel(context.Background())
				go func() {
					time.Sleep(5 * time.Millisecond)
					cancel()
				}()

				err := guard.Do(ctx, "start", "webfrontend", time.Minute, func(ctx context.Context) error {
					<-ctx.Done()
					return errors.New("connection reset by peer")
				})
				Expect(errors.Is(err, context.Canceled)).To(BeTrue(), "got %v", err)
				Expect(err.Error()).To(ContainSubstring("start aborted"))
			}
		})
	})

	Context("parent context cancelled", func() {
		// Given a caller that aborts the run
		// When the guarded operation is still running
		// Then the abort is reported as such and not disguised as a timeout
		It("reports the cancellation instead of a timeout", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			err := guard.Do(ctx, "start", "", time.Minute, func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			})

			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(srvErrors.IsTimeoutError(err)).To(BeFalse())
		})
	})

	Context("abandoned results", func() {
		// Given an operation that succeeds only after the guard gave up
		// When it finally returns
		// Then its result is released
		It("releases a late result", func() {
			var released atomic.Int32
			finish := make(chan struct{})

			_, err := guard.RunOrRelease(context.Background(), "build", "", 20*time.Millisecond, func(ctx context.Context) (string, error) {
				<-finish
				return "instance", nil
			}, func(v string) {
				Expect(v).To(Equal("instance"))
				released.Add(1)
			})
			Expect(srvErrors.IsTimeoutError(err)).To(BeTrue())

			close(finish)
			Eventually(released.Load).Should(Equal(int32(1)))
		})

		It("does not release a late failure", func() {
			var released atomic.Int32
			finish := make(chan struct{})

			_, _ = guard.RunOrRelease(context.Background(), "build", "", 20*time.Millisecond, func(ctx context.Context) (string, error) {
				<-finish
				return "", errors.New("failed")
			}, func(string) {
				released.Add(1)
			})

			close(finish)
			Consistently(released.Load, 100*time.Millisecond).Should(BeZero())
		})
	})

	It("uses the default ceiling when none is given", func() {
		Expect(guard.DefaultTimeout).To(Equal(30 * time.Second))
	})
})
