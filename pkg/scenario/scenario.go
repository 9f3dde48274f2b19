// Package scenario drives one smoke scenario from topology launch to teardown
// and runs sets of scenarios concurrently.
package scenario

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hostncode/apphost-smoke/internal/models"
	"github.com/hostncode/apphost-smoke/internal/topology"
)

// Scenario is one end-to-end check: launch Descriptor, wait for Resource to
// be healthy, GET Path and compare the answer.
type Scenario struct {
	Name           string
	Descriptor     models.Descriptor
	Resource       string
	Path           string
	ExpectedStatus int
	ExpectedBody   string
}

func (s Scenario) String() string {
	return fmt.Sprintf("%s (%s %s%s)", s.Name, s.Descriptor, s.Resource, s.Path)
}

// DefaultScenarios returns the page checks of the frontend.
func DefaultScenarios() []Scenario {
	page := func(name, path, body string) Scenario {
		return Scenario{
			Name:           name,
			Descriptor:     topology.FrontendDescriptor,
			Resource:       topology.FrontendResource,
			Path:           path,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   body,
		}
	}
	return []Scenario{
		page("HomePage_ReturnsOkStatusCode", "/", "Host 'n Code"),
		page("ServicesPage_ReturnsOkStatusCode", "/services", "Our Technology Services"),
		page("AboutPage_ReturnsOkStatusCode", "/about", "About Host 'n Code"),
	}
}

// Select returns the scenarios whose name is in names, all of them when
// names is empty.
func Select(scenarios []Scenario, names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		return scenarios, nil
	}

	byName := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		byName[s.Name] = s
	}

	selected := make([]Scenario, 0, len(names))
	for _, n := range names {
		s, found := byName[n]
		if !found {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		selected = append(selected, s)
	}
	return selected, nil
}

// Report is the outcome of one scenario.
type Report struct {
	Scenario   Scenario
	InstanceID string
	// Phase is the last phase entered; on failure it is the phase that failed.
	Phase       models.Phase
	Result      *models.ProbeResult
	Err         error
	TeardownErr error
	Started     time.Time
	Duration    time.Duration
}

func (r *Report) Passed() bool { return r.Err == nil }

// Record converts the report to its run history row.
func (r *Report) Record(runID string) models.RunRecord {
	record := models.RunRecord{
		RunID:      runID,
		Scenario:   r.Scenario.Name,
		Topology:   r.Scenario.Descriptor,
		Resource:   r.Scenario.Resource,
		Path:       r.Scenario.Path,
		InstanceID: r.InstanceID,
		Phase:      r.Phase,
		Passed:     r.Passed(),
		Duration:   r.Duration,
		StartedAt:  r.Started,
	}
	if r.Result != nil {
		record.StatusCode = r.Result.StatusCode
	}
	if r.Err != nil {
		record.Error = r.Err.Error()
	}
	if r.TeardownErr != nil {
		record.TeardownError = r.TeardownErr.Error()
	}
	return record
}
