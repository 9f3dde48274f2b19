package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/internal/models"
)

var _ = Describe("Models", func() {
	Context("queue", func() {
		It("pops in insertion order", func() {
			var q models.Queue[int]
			q.Push(1)
			q.Push(2)
			q.Push(3)

			Expect(q.Len()).To(Equal(3))
			Expect(q.Pop()).To(Equal(1))
			Expect(q.Drain()).To(Equal([]int{2, 3}))
			Expect(q.Len()).To(BeZero())
		})
	})

	Context("health state", func() {
		DescribeTable("parses known states",
			func(s string, expected models.HealthState) {
				state, err := models.ParseHealthState(s)
				Expect(err).ToNot(HaveOccurred())
				Expect(state).To(Equal(expected))
			},
			Entry("not ready", "not-ready", models.HealthStateNotReady),
			Entry("healthy", "healthy", models.HealthStateHealthy),
			Entry("unhealthy", "unhealthy", models.HealthStateUnhealthy),
			Entry("terminated", "terminated", models.HealthStateTerminated),
		)

		It("rejects unknown states", func() {
			_, err := models.ParseHealthState("degraded")
			Expect(err).To(HaveOccurred())
		})

		It("treats only terminated as final", func() {
			Expect(models.HealthStateTerminated.IsFinal()).To(BeTrue())
			Expect(models.HealthStateUnhealthy.IsFinal()).To(BeFalse())
		})
	})

	It("formats resource events", func() {
		e := models.ResourceEvent{Resource: "webfrontend", State: models.HealthStateTerminated, Error: "exit status 1"}
		Expect(e.String()).To(Equal("webfrontend: terminated (exit status 1)"))
	})
})
