package main

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/topology"
	"github.com/hostncode/apphost-smoke/pkg/apphost"
	"github.com/hostncode/apphost-smoke/pkg/apphost/resources"
	"github.com/hostncode/apphost-smoke/pkg/podman"
	"github.com/hostncode/apphost-smoke/pkg/scenario"
)

var _ = Describe("Frontend in a container", Ordered, Label("container"), func() {
	var (
		runner  *scenario.Runner
		podRun  *podman.Runner
		initial []string
	)

	BeforeAll(func() {
		if cfg.Frontend.Image == "" {
			Skip("--frontend-image is not set")
		}

		var err error
		podRun, err = podman.NewRunner(context.Background(), cfg.Frontend.PodmanSocket)
		if err != nil {
			Skip("podman is not reachable: " + err.Error())
		}

		containerCfg := *cfg
		containerCfg.Frontend.Mode = config.FrontendModeContainer
		registry, err := topology.NewRegistry(&containerCfg)
		Expect(err).ToNot(HaveOccurred(), "failed to register topologies")

		policy := cfg.Resilience.Policy()
		runner = scenario.NewRunner(registry, apphost.Overrides{
			HTTPClientPolicy: &policy,
			HealthInterval:   cfg.Harness.HealthInterval,
		}, cfg.Harness.Timeout)

		initial, err = podRun.ListByLabel(resources.ResourceLabel, topology.FrontendResource)
		Expect(err).ToNot(HaveOccurred())
		GinkgoWriter.Printf("Launching %s from image %s\n", topology.FrontendDescriptor, cfg.Frontend.Image)
	})

	// Given the frontend image served through podman
	// When the services scenario runs
	// Then the page answers and the container is removed afterwards
	It("serves the services page and removes its container", func() {
		selected, err := scenario.Select(scenario.DefaultScenarios(), "ServicesPage_ReturnsOkStatusCode")
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.Harness.Timeout)
		defer cancel()

		report, err := runner.Run(ctx, selected[0])
		Expect(err).ToNot(HaveOccurred(), "scenario failed at %s", report.Phase)
		Expect(report.TeardownErr).ToNot(HaveOccurred())
		Expect(report.Phase).To(Equal(models.PhaseAssert))
		Expect(report.Result.StatusCode).To(Equal(http.StatusOK))
		Expect(report.Result.Body).To(ContainSubstring("Our Technology Services"))

		remaining, err := podRun.ListByLabel(resources.ResourceLabel, topology.FrontendResource)
		Expect(err).ToNot(HaveOccurred())
		Expect(remaining).To(ConsistOf(initial))
	})
})
