// Package probe issues HTTP requests against a resource of a running
// instance.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hostncode/apphost-smoke/internal/models"
	srvErrors "github.com/hostncode/apphost-smoke/pkg/errors"
)

// ClientSource hands out HTTP clients bound to a named resource.
type ClientSource interface {
	HTTPClient(resource string) (*http.Client, error)
}

// Probe issues GET requests to one resource through the client the instance
// configured for it.
type Probe struct {
	resource string
	client   *http.Client
}

// Client returns a probe for resource. The client resolves the resource's
// endpoint at request time and carries the instance's resilience policy.
func Client(source ClientSource, resource string) (*Probe, error) {
	c, err := source.HTTPClient(resource)
	if err != nil {
		return nil, srvErrors.NewRequestError(resource, "", err)
	}
	return &Probe{resource: resource, client: c}, nil
}

// New wraps an existing client.
func New(resource string, client *http.Client) *Probe {
	return &Probe{resource: resource, client: client}
}

func (p *Probe) Resource() string { return p.resource }

// Get issues GET path and reads the whole body. Failures to reach the
// resource or read the answer are RequestErrors; the status code is never
// interpreted here.
func (p *Probe) Get(ctx context.Context, path string) (*models.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, srvErrors.NewRequestError(p.resource, path, err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, srvErrors.NewRequestError(p.resource, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, srvErrors.NewRequestError(p.resource, path, fmt.Errorf("reading body: %w", err))
	}

	result := &models.ProbeResult{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Elapsed:    time.Since(start),
	}
	zap.S().Debugw("probe completed", "resource", p.resource, "path", path, "status", result.StatusCode, "elapsed", result.Elapsed)
	return result, nil
}
