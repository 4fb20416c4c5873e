package migrate

// State is one step of the migration state machine. Transitions move
// forward only, except that Aborted is reachable from every non-committed
// state.
type State string

const (
	StatePrepared    State = "prepared"
	StateBackedUp    State = "backed-up"
	StateTransformed State = "transformed"
	StateVerified    State = "verified"
	StateCommitted   State = "committed"
	StateAborted     State = "aborted"
)

// next maps each state to its single forward successor.
var next = map[State]State{
	StatePrepared:    StateBackedUp,
	StateBackedUp:    StateTransformed,
	StateTransformed: StateVerified,
	StateVerified:    StateCommitted,
}

// CanAdvance reports whether to is the legal forward transition from s.
func (s State) CanAdvance(to State) bool {
	return next[s] == to
}

// CanAbort reports whether the terminal Aborted state is reachable from s.
func (s State) CanAbort() bool {
	return s != StateCommitted && s != StateAborted
}

// Terminal reports whether the migration has finished, one way or the other.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateAborted
}
