package resilience

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Policy is the client-side resilience configuration attached to every HTTP
// client an instance hands out. The zero value is not useful; start from
// StandardPolicy.
type Policy struct {
	// TotalTimeout bounds a request including every retry.
	TotalTimeout time.Duration
	// AttemptTimeout bounds a single attempt.
	AttemptTimeout time.Duration

	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// BreakerFailureRatio opens the breaker once at least
	// BreakerMinRequests were sampled in BreakerSamplingWindow.
	BreakerFailureRatio   float64
	BreakerMinRequests    uint32
	BreakerSamplingWindow time.Duration
	// BreakerConsecutiveFailures opens the breaker regardless of the ratio.
	BreakerConsecutiveFailures uint32
	BreakerBreakDuration       time.Duration

	// InsecureSkipVerify disables certificate checks, for self-signed frontends.
	InsecureSkipVerify bool
}

// StandardPolicy mirrors the usual "standard resilience handler" defaults.
func StandardPolicy() Policy {
	return Policy{
		TotalTimeout:               30 * time.Second,
		AttemptTimeout:             10 * time.Second,
		RetryMax:                   3,
		RetryWaitMin:               2 * time.Second,
		RetryWaitMax:               10 * time.Second,
		BreakerFailureRatio:        0.1,
		BreakerMinRequests:         100,
		BreakerSamplingWindow:      30 * time.Second,
		BreakerConsecutiveFailures: 5,
		BreakerBreakDuration:       5 * time.Second,
	}
}

// Validate checks the policy for values that would disable it silently.
func (p Policy) Validate() error {
	switch {
	case p.TotalTimeout <= 0:
		return errors.New("total timeout must be positive")
	case p.AttemptTimeout <= 0:
		return errors.New("attempt timeout must be positive")
	case p.AttemptTimeout > p.TotalTimeout:
		return fmt.Errorf("attempt timeout %s exceeds total timeout %s", p.AttemptTimeout, p.TotalTimeout)
	case p.RetryMax < 0:
		return errors.New("retry max cannot be negative")
	case p.RetryWaitMin > p.RetryWaitMax:
		return errors.New("retry wait min exceeds retry wait max")
	case p.BreakerFailureRatio <= 0 || p.BreakerFailureRatio > 1:
		return fmt.Errorf("breaker failure ratio %v not in (0, 1]", p.BreakerFailureRatio)
	}
	return nil
}

// EndpointFunc resolves the current base address of a resource.
type EndpointFunc func() (*url.URL, error)

// NewClient returns a client for the resource called name. Requests with a
// relative URL, or addressed to http://<name>/, are resolved against endpoint
// at request time. Layers from the outside in: total timeout, retry,
// circuit breaker, attempt timeout.
func (p Policy) NewClient(name string, endpoint EndpointFunc) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if p.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	breaker := &breakerTransport{
		next:    base,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](p.breakerSettings(name)),
	}

	retrying := retryablehttp.NewClient()
	retrying.HTTPClient = &http.Client{
		Transport: breaker,
		Timeout:   p.AttemptTimeout,
	}
	retrying.RetryMax = p.RetryMax
	retrying.RetryWaitMin = p.RetryWaitMin
	retrying.RetryWaitMax = p.RetryWaitMax
	retrying.CheckRetry = checkRetry
	retrying.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retrying.Logger = &retryableLogger{logger: zap.S().Named("resilience").With("resource", name)}

	return &http.Client{
		Transport: &baseAddressTransport{
			name:      name,
			endpoint:  endpoint,
			next:      &retryablehttp.RoundTripper{Client: retrying},
			closeIdle: retrying.HTTPClient.CloseIdleConnections,
		},
		Timeout: p.TotalTimeout,
	}
}

func (p Policy) breakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:     name,
		Interval: p.BreakerSamplingWindow,
		Timeout:  p.BreakerBreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if p.BreakerConsecutiveFailures > 0 && counts.ConsecutiveFailures >= p.BreakerConsecutiveFailures {
				return true
			}
			if counts.Requests < p.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= p.BreakerFailureRatio
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.S().Named("resilience").Infow("circuit breaker state changed", "resource", name, "from", from.String(), "to", to.String())
		},
	}
}

// checkRetry retries transport errors, 408, 429 and 5xx, and gives up as soon
// as the request context is done.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, err
	}
	if err != nil {
		return true, nil
	}
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented:
		return true, nil
	}
	return false, nil
}

type retryableLogger struct {
	logger *zap.SugaredLogger
}

func (l *retryableLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *retryableLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *retryableLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *retryableLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}
