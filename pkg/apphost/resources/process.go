package resources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultGracePeriod = 5 * time.Second

// ProcessConfig describes a local executable serving HTTP on a port it reads
// from PortEnv.
type ProcessConfig struct {
	Binary     string
	Args       []string
	Env        map[string]string
	PortEnv    string
	HealthPath string
	// GracePeriod is how long Stop waits after an interrupt before killing.
	GracePeriod time.Duration
}

// Process runs a local executable. The port is allocated at build time and
// handed to the process through the environment; output goes to the logger.
type Process struct {
	name string
	cfg  ProcessConfig

	lock    sync.Mutex
	port    int
	cmd     *exec.Cmd
	stopped bool
	output  sync.WaitGroup
	done    chan error
	exited  chan struct{}
}

func NewProcess(name string, cfg ProcessConfig) *Process {
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultHealthPath
	}
	if cfg.PortEnv == "" {
		cfg.PortEnv = "PORT"
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Process{
		name:   name,
		cfg:    cfg,
		done:   make(chan error, 1),
		exited: make(chan struct{}),
	}
}

func (p *Process) Name() string { return p.name }

func (p *Process) Build(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	binary, err := exec.LookPath(p.cfg.Binary)
	if err != nil {
		return fmt.Errorf("failed to resolve binary %q: %w", p.cfg.Binary, err)
	}

	port, err := freePort()
	if err != nil {
		return err
	}
	p.port = port

	// not CommandContext: the process must outlive the build and start calls
	cmd := exec.Command(binary, p.cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range p.cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%d", p.cfg.PortEnv, port))
	p.cmd = cmd

	zap.S().Debugw("process prepared", "resource", p.name, "command", cmd.String(), "port", port)
	return ctx.Err()
}

func (p *Process) Start(ctx context.Context) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.cmd == nil || p.stopped {
		return fmt.Errorf("resource %s not built or already stopped", p.name)
	}
	if p.cmd.Process != nil {
		return nil
	}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	logger := zap.S().Named("process").With("resource", p.name, "pid", p.cmd.Process.Pid)
	logger.Infow("process started", "port", p.port)

	p.output.Add(2)
	go p.stream(stdout, logger.Infow)
	go p.stream(stderr, logger.Warnw)

	go func() {
		// reads must complete before Wait
		p.output.Wait()
		err := p.cmd.Wait()
		if err != nil {
			p.done <- fmt.Errorf("process exited: %w", err)
		}
		logger.Infow("process exited", "error", err)
		close(p.done)
		close(p.exited)
	}()

	return ctx.Err()
}

func (p *Process) stream(r io.Reader, log func(msg string, keysAndValues ...interface{})) {
	defer p.output.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log("process output", "line", scanner.Text())
	}
}

func (p *Process) Endpoint() (*url.URL, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.port == 0 {
		return nil, fmt.Errorf("resource %s has no endpoint before build", p.name)
	}
	return loopbackURL(p.port), nil
}

func (p *Process) Check(ctx context.Context) error {
	base, err := p.Endpoint()
	if err != nil {
		return err
	}
	return checkHTTP(ctx, base, p.cfg.HealthPath)
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan error { return p.done }

// Stop interrupts the process and kills it if it is still running after the
// grace period or when ctx is done.
func (p *Process) Stop(ctx context.Context) error {
	p.lock.Lock()
	p.stopped = true
	cmd := p.cmd
	p.lock.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-p.exited:
		return nil
	default:
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		zap.S().Warnw("failed to interrupt process", "resource", p.name, "error", err)
	}

	timer := time.NewTimer(p.cfg.GracePeriod)
	defer timer.Stop()

	select {
	case <-p.exited:
		return nil
	case <-timer.C:
		zap.S().Warnw("process did not exit gracefully, killing", "resource", p.name, "pid", cmd.Process.Pid)
	case <-ctx.Done():
	}

	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill process %s: %w", p.name, err)
	}
	<-p.exited
	return nil
}
