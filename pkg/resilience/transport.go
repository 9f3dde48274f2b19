package resilience

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

var errServerFailure = errors.New("server failure")

// baseAddressTransport rewrites requests addressed to the logical resource
// name, or carrying no host at all, to the resource's current endpoint.
type baseAddressTransport struct {
	name      string
	endpoint  EndpointFunc
	next      http.RoundTripper
	closeIdle func()
}

func (t *baseAddressTransport) CloseIdleConnections() {
	if t.closeIdle != nil {
		t.closeIdle()
	}
}

func (t *baseAddressTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host != "" && req.URL.Hostname() != t.name {
		return t.next.RoundTrip(req)
	}

	base, err := t.endpoint()
	if err != nil {
		return nil, fmt.Errorf("resolving endpoint: %w", err)
	}

	ref := *req.URL
	ref.Scheme, ref.Host = "", ""

	r := req.Clone(req.Context())
	r.URL = base.ResolveReference(&ref)
	r.Host = r.URL.Host
	return t.next.RoundTrip(r)
}

// breakerTransport counts transport errors and 5xx responses as failures.
type breakerTransport struct {
	next    *http.Transport
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func (t *breakerTransport) CloseIdleConnections() {
	t.next.CloseIdleConnections()
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if errors.Is(err, errServerFailure) {
		return resp, nil
	}
	return resp, err
}
