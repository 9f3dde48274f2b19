package podman

import (
	"context"
	"fmt"
	"strings"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"github.com/containers/podman/v5/pkg/bindings/images"
	"github.com/containers/podman/v5/pkg/specgen"
	nettypes "go.podman.io/common/libnetwork/types"
	"go.uber.org/zap"
)

type ContainerConfig struct {
	name    string
	image   string
	cmd     []string
	ports   map[int]int
	envVars map[string]string
	labels  map[string]string
}

// NewContainerConfig creates a new ContainerConfig with mandatory name and image.
func NewContainerConfig(name, image string) *ContainerConfig {
	return &ContainerConfig{
		name:    name,
		image:   image,
		ports:   make(map[int]int),
		envVars: make(map[string]string),
		labels:  make(map[string]string),
	}
}

// WithPort adds a port mapping (hostPort -> containerPort).
func (c *ContainerConfig) WithPort(hostPort, containerPort int) *ContainerConfig {
	c.ports[hostPort] = containerPort
	return c
}

// WithEnvVar adds a single environment variable.
func (c *ContainerConfig) WithEnvVar(key, value string) *ContainerConfig {
	c.envVars[key] = value
	return c
}

// WithEnvVars adds multiple environment variables.
func (c *ContainerConfig) WithEnvVars(envVars map[string]string) *ContainerConfig {
	for k, v := range envVars {
		c.envVars[k] = v
	}
	return c
}

// WithLabel tags the container, e.g. with the owning instance ID.
func (c *ContainerConfig) WithLabel(key, value string) *ContainerConfig {
	c.labels[key] = value
	return c
}

// WithCmd sets the command to run in the container.
func (c *ContainerConfig) WithCmd(cmd ...string) *ContainerConfig {
	c.cmd = cmd
	return c
}

func (c *ContainerConfig) Name() string { return c.name }

// ContainerState is the subset of the inspect data the app host cares about.
type ContainerState struct {
	Running  bool
	ExitCode int32
	Error    string
}

type Runner struct {
	conn context.Context
}

func NewRunner(ctx context.Context, socket string) (*Runner, error) {
	conn, err := bindings.NewConnection(ctx, socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to podman: %w", err)
	}
	return &Runner{conn: conn}, nil
}

// EnsureImage pulls image unless it is already present locally.
func (p *Runner) EnsureImage(ctx context.Context, image string) error {
	exists, err := images.Exists(p.conn, image, nil)
	if err != nil {
		return fmt.Errorf("failed to check image %s: %w", image, err)
	}
	if exists {
		return nil
	}

	zap.S().Infow("pulling image", "image", image)
	if _, err := images.Pull(p.conn, image, new(images.PullOptions).WithQuiet(true)); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return ctx.Err()
}

// CreateContainer creates the container without starting it.
func (p *Runner) CreateContainer(cfg *ContainerConfig) (string, error) {
	s := specgen.NewSpecGenerator(cfg.image, false)
	s.Name = cfg.name
	s.Command = cfg.cmd
	s.Env = cfg.envVars
	s.Labels = cfg.labels

	if len(cfg.ports) > 0 {
		s.PortMappings = make([]nettypes.PortMapping, 0, len(cfg.ports))
		for hostPort, containerPort := range cfg.ports {
			s.PortMappings = append(s.PortMappings, nettypes.PortMapping{
				HostIP:        "127.0.0.1",
				HostPort:      uint16(hostPort),
				ContainerPort: uint16(containerPort),
				Protocol:      "tcp",
			})
		}
	}

	createResponse, err := containers.CreateWithSpec(p.conn, s, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	for _, w := range createResponse.Warnings {
		zap.S().Warnw("container create warning", "name", cfg.name, "warning", w)
	}

	return createResponse.ID, nil
}

func (p *Runner) StartContainer(id string) error {
	if err := containers.Start(p.conn, id, nil); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

func (p *Runner) StopContainer(id string, timeoutSeconds uint) error {
	if err := containers.Stop(p.conn, id, new(containers.StopOptions).WithTimeout(timeoutSeconds)); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

func (p *Runner) RemoveContainer(id string) error {
	_, err := containers.Remove(p.conn, id, new(containers.RemoveOptions).WithForce(true).WithVolumes(true))
	if err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// ListByLabel returns the IDs of the containers, running or not, labelled
// key=value.
func (p *Runner) ListByLabel(key, value string) ([]string, error) {
	opts := new(containers.ListOptions).
		WithAll(true).
		WithFilters(map[string][]string{"label": {key + "=" + value}})
	list, err := containers.List(p.conn, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (p *Runner) Inspect(id string) (ContainerState, error) {
	data, err := containers.Inspect(p.conn, id, nil)
	if err != nil {
		return ContainerState{}, fmt.Errorf("failed to inspect container: %w", err)
	}
	return ContainerState{
		Running:  data.State.Running,
		ExitCode: data.State.ExitCode,
		Error:    data.State.Error,
	}, nil
}

func (p *Runner) Logs(id string) (string, error) {
	var stdout, stderr []string
	stdoutChan := make(chan string)
	stderrChan := make(chan string)
	collected := make(chan struct{}, 2)

	go func() {
		for line := range stdoutChan {
			stdout = append(stdout, line)
		}
		collected <- struct{}{}
	}()
	go func() {
		for line := range stderrChan {
			stderr = append(stderr, line)
		}
		collected <- struct{}{}
	}()

	opts := new(containers.LogOptions).WithStdout(true).WithStderr(true)
	err := containers.Logs(p.conn, id, opts, stdoutChan, stderrChan)
	close(stdoutChan)
	close(stderrChan)
	<-collected
	<-collected
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	return fmt.Sprintf("stdout: %s\nstderr: %s", strings.Join(stdout, "\n"), strings.Join(stderr, "\n")), nil
}
