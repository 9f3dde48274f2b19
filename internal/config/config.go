package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"github.com/hostncode/apphost-smoke/pkg/resilience"
)

const (
	FrontendModeInProcess = "inproc"
	FrontendModeProcess   = "process"
	FrontendModeContainer = "container"
)

type Configuration struct {
	Harness    Harness
	Frontend   Frontend
	Resilience Resilience
	Server     Server
	LogLevel   string `default:"info" validate:"oneof=debug info warn error"`
	LogFormat  string `default:"console" validate:"oneof=console json"`
}

// Harness configures the scenario runs.
type Harness struct {
	Topology       string        `default:"HostnCodeWebApp.AppHost" validate:"required"`
	Timeout        time.Duration `default:"30s" validate:"gt=0"`
	Workers        int           `default:"3" validate:"gte=1"`
	HealthInterval time.Duration `default:"1s" validate:"gt=0"`
	Scenarios      []string
	// HistoryDB is the DuckDB file runs are recorded in; empty disables it.
	HistoryDB string
}

// Frontend configures how the webfrontend resource is launched.
type Frontend struct {
	Mode          string `default:"inproc" validate:"oneof=inproc process container"`
	Binary        string
	Image         string `default:"localhost/apphost-smoke:latest"`
	PodmanSocket  string `default:"unix:///run/user/1000/podman/podman.sock"`
	ContainerPort int    `default:"8080" validate:"gte=1,lte=65535"`
}

// Resilience is the policy attached to every HTTP client of an instance.
type Resilience struct {
	TotalTimeout               time.Duration `default:"30s"`
	AttemptTimeout             time.Duration `default:"10s"`
	RetryMax                   int           `default:"3" validate:"gte=0"`
	RetryWaitMin               time.Duration `default:"2s"`
	RetryWaitMax               time.Duration `default:"10s"`
	BreakerFailureRatio        float64       `default:"0.1"`
	BreakerMinRequests         uint32        `default:"100"`
	BreakerSamplingWindow      time.Duration `default:"30s"`
	BreakerConsecutiveFailures uint32        `default:"5"`
	BreakerBreakDuration       time.Duration `default:"5s"`
	InsecureSkipVerify         bool
}

// Server configures the stand-in frontend server.
type Server struct {
	HTTPPort   int    `default:"8080"`
	ServerMode string `default:"dev"`
}

func NewConfigurationWithOptionsAndDefaults(opts ...func(c *Configuration)) *Configuration {
	c := &Configuration{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("invalid configuration defaults: %v", err))
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate checks the struct tags of c.
func (c *Configuration) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	return v.Struct(c)
}

// Policy converts the resilience section to a policy.
func (r Resilience) Policy() resilience.Policy {
	return resilience.Policy{
		TotalTimeout:               r.TotalTimeout,
		AttemptTimeout:             r.AttemptTimeout,
		RetryMax:                   r.RetryMax,
		RetryWaitMin:               r.RetryWaitMin,
		RetryWaitMax:               r.RetryWaitMax,
		BreakerFailureRatio:        r.BreakerFailureRatio,
		BreakerMinRequests:         r.BreakerMinRequests,
		BreakerSamplingWindow:      r.BreakerSamplingWindow,
		BreakerConsecutiveFailures: r.BreakerConsecutiveFailures,
		BreakerBreakDuration:       r.BreakerBreakDuration,
		InsecureSkipVerify:         r.InsecureSkipVerify,
	}
}
