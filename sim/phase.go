package sim

import "fmt"

// Phase is the power state of the endpoint's transmitter.
type Phase int

const (
	// Sleeping: transmitter powered down, traffic accumulates.
	Sleeping Phase = iota
	// Waking: wake-up latency plus one report/grant cycle.
	Waking
	// Active: transmitter on, draining the queue in its allocation windows.
	Active
	// Quiescing: confirming an empty queue before powering down.
	Quiescing
)

// phaseNames are the tokens written to the trace.
var phaseNames = [...]string{
	Sleeping:  "OFF",
	Waking:    "TON",
	Active:    "ON",
	Quiescing: "TOFF",
}

// String returns the trace token for the phase.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// legalTransitions lists every allowed phase change.
var legalTransitions = map[Phase][]Phase{
	Sleeping:  {Waking},
	Waking:    {Active},
	Active:    {Quiescing},
	Quiescing: {Sleeping, Active},
}

// CanTransition reports whether from → to is an allowed phase change.
func CanTransition(from, to Phase) bool {
	for _, p := range legalTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// ParsePhase maps a trace token back to its Phase.
func ParsePhase(name string) (Phase, bool) {
	for p, n := range phaseNames {
		if n == name {
			return Phase(p), true
		}
	}
	return 0, false
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	return []Phase{Sleeping, Waking, Active, Quiescing}
}
