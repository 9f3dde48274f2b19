package models

// Descriptor names an application topology registered with the app host.
type Descriptor string

func (d Descriptor) String() string { return string(d) }

// Phase is a stage of a smoke scenario.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhasePlan       Phase = "plan"
	PhaseBuild      Phase = "build"
	PhaseStart      Phase = "start"
	PhaseHealthWait Phase = "health-wait"
	PhaseProbe      Phase = "probe"
	PhaseAssert     Phase = "assert"
	PhaseTeardown   Phase = "teardown"
)

func (p Phase) String() string { return string(p) }
