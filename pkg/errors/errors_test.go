package errors_test

import (
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
)

var _ = Describe("Errors", func() {
	Context("type helpers", func() {
		// Given each typed error wrapped by fmt.Errorf
		// When we check it with its helper
		// Then the helper sees through the wrapping
		DescribeTable("recognises wrapped errors",
			func(err error, is func(error) bool) {
				Expect(is(fmt.Errorf("context: %w", err))).To(BeTrue())
				Expect(is(errors.New("plain"))).To(BeFalse())
			},
			Entry("plan construction", srvErrors.NewPlanConstructionError("App", nil), srvErrors.IsPlanConstructionError),
			Entry("build", srvErrors.NewBuildError("webfrontend", errors.New("no port")), srvErrors.IsBuildError),
			Entry("start", srvErrors.NewStartError("webfrontend", errors.New("crashed")), srvErrors.IsStartError),
			Entry("timeout", srvErrors.NewTimeoutError("health-wait", "webfrontend", time.Second), srvErrors.IsTimeoutError),
			Entry("terminated", srvErrors.NewResourceTerminatedError("webfrontend", "exit 1"), srvErrors.IsResourceTerminatedError),
			Entry("request", srvErrors.NewRequestError("webfrontend", "/", errors.New("refused")), srvErrors.IsRequestError),
			Entry("assertion", srvErrors.NewAssertionError("status", 200, 500), srvErrors.IsAssertionError),
		)
	})

	Context("messages", func() {
		It("names phase, resource and ceiling of a timeout", func() {
			err := srvErrors.NewTimeoutError("health-wait", "webfrontend", 30*time.Second)
			Expect(err.Error()).To(Equal(`health-wait of resource "webfrontend" timed out after 30s`))
		})

		It("omits the resource of a timeout when unknown", func() {
			err := srvErrors.NewTimeoutError("build", "", time.Second)
			Expect(err.Error()).To(Equal("build timed out after 1s"))
		})

		It("shows expected and actual values of an assertion", func() {
			err := srvErrors.NewAssertionError("status", 200, 503)
			Expect(err.Error()).To(Equal("status mismatch: expected 200, got 503"))
		})
	})

	Context("phase error", func() {
		// Given a timeout wrapped in a phase error
		// When we inspect it
		// Then the phase is recoverable and the cause is still reachable
		It("keeps the phase and the cause", func() {
			cause := srvErrors.NewTimeoutError("health-wait", "webfrontend", time.Second)
			err := fmt.Errorf("run: %w", srvErrors.NewPhaseError("AboutPage", "health-wait", cause))

			Expect(srvErrors.FailedPhase(err)).To(Equal("health-wait"))
			Expect(srvErrors.IsTimeoutError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(`scenario "AboutPage" failed during health-wait`))
		})

		It("returns no phase for other errors", func() {
			Expect(srvErrors.FailedPhase(errors.New("plain"))).To(BeEmpty())
			Expect(srvErrors.FailedPhase(nil)).To(BeEmpty())
		})

		It("unwraps to the original cause", func() {
			cause := errors.New("connection refused")
			err := srvErrors.NewPhaseError("HomePage", "probe", srvErrors.NewRequestError("webfrontend", "/", cause))
			Expect(errors.Is(err, cause)).To(BeTrue())
		})
	})
})
