// Package resources holds the resource kinds a topology can declare: an
// in-process HTTP handler, a local process and a podman container.
package resources

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

const DefaultHealthPath = "/health"

var healthClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}

// checkHTTP reports nil when GET base+path answers with a 2xx status.
func checkHTTP(ctx context.Context, base *url.URL, path string) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("invalid health path %q: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.ResolveReference(ref).String(), nil)
	if err != nil {
		return err
	}

	resp, err := healthClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// freePort asks the kernel for a loopback port that is free right now.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func loopbackURL(port int) *url.URL {
	return &url.URL{Scheme: "http", Host: net.JoinHostPort("127.0.0.1", fmt.Sprint(port))}
}
