package apphost_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/hostncode/apphost-smoke/pkg/apphost"
)

var errNotHealthy = errors.New("not healthy")

// startLog records the order resources were started and stopped in.
type startLog struct {
	lock    sync.Mutex
	started []string
	stopped []string
}

func (l *startLog) start(name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.started = append(l.started, name)
}

func (l *startLog) stop(name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.stopped = append(l.stopped, name)
}

func (l *startLog) Started() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.started...)
}

func (l *startLog) Stopped() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.stopped...)
}

type fakeResource struct {
	name     string
	endpoint string
	log      *startLog

	buildErr error
	startErr error
	// blockStart makes Start wait for its context.
	blockStart bool

	healthy atomic.Bool
	stops   atomic.Int32
	done    chan error
}

func newFake(name string, log *startLog) *fakeResource {
	return &fakeResource{
		name:     name,
		endpoint: "http://127.0.0.1:1",
		log:      log,
		done:     make(chan error, 1),
	}
}

func (f *fakeResource) spec(dependsOn ...string) apphost.ResourceSpec {
	return apphost.ResourceSpec{
		Name:      f.name,
		New:       func() (apphost.Resource, error) { return f, nil },
		DependsOn: dependsOn,
	}
}

func (f *fakeResource) Name() string { return f.name }

func (f *fakeResource) Build(context.Context) error { return f.buildErr }

func (f *fakeResource) Start(ctx context.Context) error {
	if f.blockStart {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.startErr != nil {
		return f.startErr
	}
	f.log.start(f.name)
	return nil
}

func (f *fakeResource) Endpoint() (*url.URL, error) { return url.Parse(f.endpoint) }

func (f *fakeResource) Check(context.Context) error {
	if f.healthy.Load() {
		return nil
	}
	return errNotHealthy
}

func (f *fakeResource) Stop(context.Context) error {
	f.stops.Add(1)
	f.log.stop(f.name)
	return nil
}

func (f *fakeResource) Done() <-chan error { return f.done }

// terminate simulates the resource exiting on its own.
func (f *fakeResource) terminate(err error) {
	f.done <- err
	close(f.done)
}
