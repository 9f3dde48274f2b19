package resources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler serves an http.Handler in-process on a loopback port allocated at
// build time.
type Handler struct {
	name       string
	handler    http.Handler
	healthPath string

	lock     sync.Mutex
	listener net.Listener
	server   *http.Server
	serving  bool
	done     chan error
}

func NewHandler(name string, handler http.Handler, healthPath string) *Handler {
	if healthPath == "" {
		healthPath = DefaultHealthPath
	}
	return &Handler{
		name:       name,
		handler:    handler,
		healthPath: healthPath,
		done:       make(chan error, 1),
	}
}

func (h *Handler) Name() string { return h.name }

func (h *Handler) Build(ctx context.Context) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener != nil {
		return fmt.Errorf("resource %s already built", h.name)
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	h.listener = l
	h.server = &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (h *Handler) Start(ctx context.Context) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener == nil {
		return fmt.Errorf("resource %s not built or already stopped", h.name)
	}
	if h.serving {
		return nil
	}
	h.serving = true

	go func() {
		defer close(h.done)
		if err := h.server.Serve(h.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorw("in-process server failed", "resource", h.name, "error", err)
			h.done <- err
		}
	}()

	zap.S().Debugw("in-process server listening", "resource", h.name, "address", h.listener.Addr().String())
	return ctx.Err()
}

func (h *Handler) Endpoint() (*url.URL, error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener == nil {
		return nil, fmt.Errorf("resource %s has no endpoint before build", h.name)
	}
	return loopbackURL(h.listener.Addr().(*net.TCPAddr).Port), nil
}

func (h *Handler) Check(ctx context.Context) error {
	base, err := h.Endpoint()
	if err != nil {
		return err
	}
	return checkHTTP(ctx, base, h.healthPath)
}

// Done is closed when the server stops serving.
func (h *Handler) Done() <-chan error { return h.done }

func (h *Handler) Stop(ctx context.Context) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.listener == nil {
		return nil
	}
	defer func() { h.listener = nil }()

	if !h.serving {
		if err := h.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("failed to close listener: %w", err)
		}
		return nil
	}

	if err := h.server.Shutdown(ctx); err != nil {
		_ = h.server.Close()
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
