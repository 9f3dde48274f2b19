package resources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/pkg/podman"
)

const (
	ResourceLabel      = "apphost.resource"
	defaultStopTimeout = 10
	inspectInterval    = time.Second
)

// ContainerConfig describes a podman container serving HTTP on ContainerPort.
type ContainerConfig struct {
	Socket        string
	Image         string
	Cmd           []string
	Env           map[string]string
	ContainerPort int
	// PortEnv, when set, names the variable ContainerPort is passed in.
	PortEnv string
	HealthPath    string
	// StopTimeout is the number of seconds podman waits before killing.
	StopTimeout uint
}

// Container runs a podman container with ContainerPort published on a
// loopback host port allocated at build time.
type Container struct {
	name string
	cfg  ContainerConfig

	lock     sync.Mutex
	runner   *podman.Runner
	id       string
	hostPort int
	stopped  bool

	watchCancel context.CancelFunc
	watching    sync.WaitGroup
	done        chan error
}

func NewContainer(name string, cfg ContainerConfig) *Container {
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	return &Container{
		name: name,
		cfg:  cfg,
		done: make(chan error, 1),
	}
}

func (c *Container) Name() string { return c.name }

// Build pulls the image if needed and creates the container.
func (c *Container) Build(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.cfg.ContainerPort <= 0 {
		return errors.New("container port must be set")
	}

	// the connection is used until Stop, long after ctx is gone
	runner, err := podman.NewRunner(context.WithoutCancel(ctx), c.cfg.Socket)
	if err != nil {
		return err
	}
	c.runner = runner

	if err := runner.EnsureImage(ctx, c.cfg.Image); err != nil {
		return err
	}

	hostPort, err := freePort()
	if err != nil {
		return err
	}
	c.hostPort = hostPort

	cfg := podman.NewContainerConfig(fmt.Sprintf("%s-%s", c.name, uuid.NewString()[:8]), c.cfg.Image).
		WithPort(hostPort, c.cfg.ContainerPort).
		WithEnvVars(c.cfg.Env).
		WithLabel(ResourceLabel, c.name)
	if c.cfg.PortEnv != "" {
		cfg.WithEnvVar(c.cfg.PortEnv, strconv.Itoa(c.cfg.ContainerPort))
	}
	if len(c.cfg.Cmd) > 0 {
		cfg.WithCmd(c.cfg.Cmd...)
	}

	id, err := runner.CreateContainer(cfg)
	if err != nil {
		return err
	}
	c.id = id

	zap.S().Infow("container created", "resource", c.name, "container", cfg.Name(), "id", id, "port", hostPort)
	return ctx.Err()
}

func (c *Container) Start(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.id == "" || c.stopped {
		return fmt.Errorf("resource %s not built or already stopped", c.name)
	}
	if c.watchCancel != nil {
		return nil
	}

	if err := c.runner.StartContainer(c.id); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	c.watchCancel = cancel
	c.watching.Add(1)
	go c.watch(watchCtx, c.runner, c.id)

	return ctx.Err()
}

// watch inspects the container until it stops running.
func (c *Container) watch(ctx context.Context, runner *podman.Runner, id string) {
	defer c.watching.Done()

	ticker := backoff.NewTicker(backoff.WithContext(backoff.NewConstantBackOff(inspectInterval), ctx))
	defer ticker.Stop()

	for range ticker.C {
		state, err := runner.Inspect(id)
		if err != nil {
			zap.S().Debugw("failed to inspect container", "resource", c.name, "error", err)
			continue
		}
		if state.Running {
			continue
		}

		err = fmt.Errorf("container exited with code %d", state.ExitCode)
		if state.Error != "" {
			err = fmt.Errorf("%w: %s", err, state.Error)
		}
		if logs, logErr := runner.Logs(id); logErr == nil {
			zap.S().Warnw("container exited", "resource", c.name, "exit_code", state.ExitCode, "logs", logs)
		}
		c.done <- err
		close(c.done)
		return
	}
}

func (c *Container) Endpoint() (*url.URL, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.hostPort == 0 {
		return nil, fmt.Errorf("resource %s has no endpoint before build", c.name)
	}
	return loopbackURL(c.hostPort), nil
}

func (c *Container) Check(ctx context.Context) error {
	base, err := c.Endpoint()
	if err != nil {
		return err
	}
	return checkHTTP(ctx, base, c.cfg.HealthPath)
}

// Done receives an error when the container stops on its own.
func (c *Container) Done() <-chan error { return c.done }

// Stop stops and removes the container.
func (c *Container) Stop(_ context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.stopped = true
	if c.watchCancel != nil {
		c.watchCancel()
		c.watching.Wait()
		c.watchCancel = nil
	}

	if c.id == "" {
		return nil
	}

	var errs error
	if err := c.runner.StopContainer(c.id, c.cfg.StopTimeout); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.runner.RemoveContainer(c.id); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		zap.S().Infow("container removed", "resource", c.name, "id", c.id)
		c.id = ""
	}
	return errs
}
