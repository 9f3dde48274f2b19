package topology_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/topology"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
)

var _ = Describe("Frontend topology", func() {
	newConfig := func(mutate func(c *config.Configuration)) *config.Configuration {
		if mutate == nil {
			return config.NewConfigurationWithOptionsAndDefaults()
		}
		return config.NewConfigurationWithOptionsAndDefaults(mutate)
	}

	It("registers the frontend descriptor", func() {
		registry, err := topology.NewRegistry(newConfig(nil))
		Expect(err).ToNot(HaveOccurred())
		Expect(registry.Descriptors()).To(Equal([]models.Descriptor{topology.FrontendDescriptor}))
	})

	DescribeTable("declares a single webfrontend resource",
		func(mode string) {
			registry, err := topology.NewRegistry(newConfig(func(c *config.Configuration) {
				c.Frontend.Mode = mode
				c.Frontend.Binary = "sh"
			}))
			Expect(err).ToNot(HaveOccurred())

			plan, err := registry.Create(topology.FrontendDescriptor)
			Expect(err).ToNot(HaveOccurred())
			Expect(plan.Resources()).To(Equal([]string{topology.FrontendResource}))
		},
		Entry("in-process", config.FrontendModeInProcess),
		Entry("process", config.FrontendModeProcess),
		Entry("container", config.FrontendModeContainer),
	)

	It("rejects an unknown frontend mode", func() {
		registry, err := topology.NewRegistry(newConfig(func(c *config.Configuration) {
			c.Frontend.Mode = "vm"
		}))
		Expect(err).ToNot(HaveOccurred())

		_, err = registry.Create(topology.FrontendDescriptor)
		Expect(srvErrors.IsPlanConstructionError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("unknown frontend mode"))
	})

	It("requires an image in container mode", func() {
		registry, err := topology.NewRegistry(newConfig(func(c *config.Configuration) {
			c.Frontend.Mode = config.FrontendModeContainer
			c.Frontend.Image = ""
		}))
		Expect(err).ToNot(HaveOccurred())

		_, err = registry.Create(topology.FrontendDescriptor)
		Expect(srvErrors.IsPlanConstructionError(err)).To(BeTrue())
	})
})
