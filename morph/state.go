package morph

import "fmt"

// EngineState drives interpolation speed and external notifications.
type EngineState uint8

const (
	// Stable: no transition in flight. Slots settle quickly toward the target.
	Stable EngineState = iota
	// Rebuilding: a transition is in flight and morph progress is advancing.
	Rebuilding
	// Dismantling is reserved for a two-phase dismantle-then-rebuild transition.
	// No transition currently enters it.
	Dismantling
)

// String returns the state name.
func (s EngineState) String() string {
	switch s {
	case Stable:
		return "STABLE"
	case Rebuilding:
		return "REBUILDING"
	case Dismantling:
		return "DISMANTLING"
	default:
		return fmt.Sprintf("EngineState(%d)", uint8(s))
	}
}

// RetargetPolicy decides what TransitionTo does while a transition is in flight.
type RetargetPolicy uint8

const (
	// PolicyRetarget swaps the target mid-flight without resetting progress,
	// so a dragged slider produces a flowing target.
	PolicyRetarget RetargetPolicy = iota
	// PolicyReject ignores TransitionTo until the in-flight transition settles.
	PolicyReject
)

// String returns the config name of the policy.
func (p RetargetPolicy) String() string {
	switch p {
	case PolicyRetarget:
		return "retarget"
	case PolicyReject:
		return "reject"
	default:
		return fmt.Sprintf("RetargetPolicy(%d)", uint8(p))
	}
}

// ParsePolicy maps a config name to a policy. Empty selects PolicyRetarget.
func ParsePolicy(name string) (RetargetPolicy, error) {
	switch name {
	case "", "retarget":
		return PolicyRetarget, nil
	case "reject":
		return PolicyReject, nil
	default:
		return PolicyRetarget, fmt.Errorf("unknown retarget policy %q", name)
	}
}
