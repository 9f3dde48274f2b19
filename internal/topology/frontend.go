// Package topology declares the application topologies the harness can
// launch.
package topology

import (
	"fmt"
	"os"
	"time"

	"github.com/hostncode/apphost-smoke/internal/config"
	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/server"
	"github.com/hostncode/apphost-smoke/internal/webfrontend"
	"github.com/hostncode/apphost-smoke/pkg/apphost"
	"github.com/hostncode/apphost-smoke/pkg/apphost/resources"
)

const (
	FrontendDescriptor models.Descriptor = "HostnCodeWebApp.AppHost"
	FrontendResource                     = "webfrontend"

	// PortEnv is read by serve-frontend through the SMOKE env prefix.
	PortEnv = "SMOKE_HTTP_PORT"
)

// NewRegistry returns a registry holding every topology, configured by cfg.
func NewRegistry(cfg *config.Configuration) (*apphost.Registry, error) {
	registry := apphost.NewRegistry()
	if err := registry.Register(FrontendDescriptor, Frontend(cfg.Frontend, cfg.Harness.HealthInterval)); err != nil {
		return nil, err
	}
	return registry, nil
}

// Frontend declares the web application topology: a single webfrontend
// resource launched the way cfg.Mode says.
func Frontend(cfg config.Frontend, healthInterval time.Duration) apphost.TopologyFunc {
	return func(b *apphost.PlanBuilder) error {
		newFrontend, err := frontendConstructor(cfg)
		if err != nil {
			return err
		}
		return b.AddResource(apphost.ResourceSpec{
			Name:           FrontendResource,
			New:            newFrontend,
			HealthInterval: healthInterval,
		})
	}
}

func frontendConstructor(cfg config.Frontend) (func() (apphost.Resource, error), error) {
	switch cfg.Mode {
	case config.FrontendModeInProcess:
		return func() (apphost.Resource, error) {
			return resources.NewHandler(FrontendResource, server.NewEngine(webfrontend.RegisterHandlers), webfrontend.HealthPath), nil
		}, nil
	case config.FrontendModeProcess:
		binary := cfg.Binary
		if binary == "" {
			self, err := os.Executable()
			if err != nil {
				return nil, fmt.Errorf("failed to locate frontend binary: %w", err)
			}
			binary = self
		}
		return func() (apphost.Resource, error) {
			return resources.NewProcess(FrontendResource, resources.ProcessConfig{
				Binary:     binary,
				Args:       []string{"serve-frontend"},
				PortEnv:    PortEnv,
				HealthPath: webfrontend.HealthPath,
			}), nil
		}, nil
	case config.FrontendModeContainer:
		if cfg.Image == "" {
			return nil, fmt.Errorf("frontend image must be set in %s mode", cfg.Mode)
		}
		return func() (apphost.Resource, error) {
			return resources.NewContainer(FrontendResource, resources.ContainerConfig{
				Socket:        cfg.PodmanSocket,
				Image:         cfg.Image,
				Cmd:           []string{"serve-frontend"},
				ContainerPort: cfg.ContainerPort,
				PortEnv:       PortEnv,
				HealthPath:    webfrontend.HealthPath,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown frontend mode %q", cfg.Mode)
	}
}
