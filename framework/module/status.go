package module

import "fmt"

// State is a module's position in the lifecycle.
type State int

const (
	Discovered State = iota
	Validated
	Ordered
	Registering
	Registered
	Booting
	Booted
	Failed
)

var stateNames = [...]string{
	Discovered:  "discovered",
	Validated:   "validated",
	Ordered:     "ordered",
	Registering: "registering",
	Registered:  "registered",
	Booting:     "booting",
	Booted:      "booted",
	Failed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Booted || s == Failed }

// next is the only forward transition allowed from each state.
var next = map[State]State{
	Discovered:  Validated,
	Validated:   Ordered,
	Ordered:     Registering,
	Registering: Registered,
	Registered:  Booting,
	Booting:     Booted,
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	return to == Failed || next[from] == to
}

// Status is a module's current state. Reason is set for Failed.
type Status struct {
	State  State
	Reason error
}

func (s Status) String() string {
	if s.Reason != nil {
		return fmt.Sprintf("%s: %v", s.State, s.Reason)
	}
	return s.State.String()
}

// Phase names the loader step an error came from.
type Phase string

const (
	PhaseResolve  Phase = "resolve"
	PhaseHooks    Phase = "hooks"
	PhaseRegister Phase = "register"
	PhaseVerify   Phase = "verify"
	PhaseBoot     Phase = "boot"
)
