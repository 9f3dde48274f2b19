package main

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/topology"
	"github.com/hostncode/apphost-smoke/pkg/apphost"
	"github.com/hostncode/apphost-smoke/pkg/scenario"
)

var _ = Describe("Frontend smoke tests", Ordered, func() {
	var runner *scenario.Runner

	BeforeAll(func() {
		registry, err := topology.NewRegistry(cfg)
		Expect(err).ToNot(HaveOccurred(), "failed to register topologies")

		policy := cfg.Resilience.Policy()
		runner = scenario.NewRunner(registry, apphost.Overrides{
			HTTPClientPolicy: &policy,
			HealthInterval:   cfg.Harness.HealthInterval,
		}, cfg.Harness.Timeout)

		GinkgoWriter.Printf("Launching %s in %s mode\n", topology.FrontendDescriptor, cfg.Frontend.Mode)
	})

	runScenario := func(name string) *scenario.Report {
		selected, err := scenario.Select(scenario.DefaultScenarios(), name)
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.Harness.Timeout)
		defer cancel()

		report, err := runner.Run(ctx, selected[0])
		Expect(err).ToNot(HaveOccurred(), "scenario failed at %s", report.Phase)
		Expect(report.TeardownErr).ToNot(HaveOccurred(), "instance %s was not released cleanly", report.InstanceID)
		return report
	}

	// Given the frontend topology
	// When a page scenario runs on its own instance
	// Then the page answers 200 with its expected text
	DescribeTable("pages",
		func(name, expected string) {
			report := runScenario(name)

			Expect(report.Phase).To(Equal(models.PhaseAssert))
			Expect(report.Result.StatusCode).To(Equal(http.StatusOK))
			Expect(report.Result.Body).To(ContainSubstring(expected))
			GinkgoWriter.Printf("%s answered in %s\n", name, report.Result.Elapsed)
		},
		Entry("home page", "HomePage_ReturnsOkStatusCode", "Host 'n Code"),
		Entry("services page", "ServicesPage_ReturnsOkStatusCode", "Our Technology Services"),
		Entry("about page", "AboutPage_ReturnsOkStatusCode", "About Host 'n Code"),
	)

	It("runs the scenarios concurrently on separate instances", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*cfg.Harness.Timeout)
		defer cancel()

		start := time.Now()
		reports := scenario.NewSuite(runner, len(scenario.DefaultScenarios())).Run(ctx, scenario.DefaultScenarios())
		GinkgoWriter.Printf("suite finished in %s\n", time.Since(start))

		for _, r := range reports {
			Expect(r.Err).ToNot(HaveOccurred(), "scenario %s failed", r.Scenario.Name)
			Expect(r.TeardownErr).ToNot(HaveOccurred())
		}

		ids := map[string]struct{}{}
		for _, r := range reports {
			ids[r.InstanceID] = struct{}{}
		}
		Expect(ids).To(HaveLen(len(reports)))
	})
})
