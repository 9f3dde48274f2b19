package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/config"
)

var cfg = config.NewConfigurationWithOptionsAndDefaults()

func validate(c *config.Configuration) error {
	if c.Frontend.Mode == config.FrontendModeContainer && c.Frontend.Image == "" {
		return errors.New("frontend container image is empty")
	}
	return c.Validate()
}

func main() {
	flag.StringVar(&cfg.Frontend.Mode, "frontend-mode", cfg.Frontend.Mode, "How webfrontend is launched: inproc, process or container")
	flag.StringVar(&cfg.Frontend.Binary, "frontend-binary", "", "Binary serving the frontend in process mode")
	flag.StringVar(&cfg.Frontend.Image, "frontend-image", cfg.Frontend.Image, "Frontend container image")
	flag.StringVar(&cfg.Frontend.PodmanSocket, "podman-socket", cfg.Frontend.PodmanSocket, "Podman socket path")
	flag.DurationVar(&cfg.Harness.Timeout, "timeout", cfg.Harness.Timeout, "Ceiling of build, start and health-wait")
	flag.DurationVar(&cfg.Harness.HealthInterval, "health-interval", 200*time.Millisecond, "Maximum interval between health checks")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := validate(cfg); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
