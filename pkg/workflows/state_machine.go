package workflows

// Transition is a single edge of a status machine.
type Transition struct {
	Action string
	To     string
}

// StateMachine enforces status transitions keyed by the action that triggers them.
// Internal actions are part of the table but are not offered to interactive callers.
type StateMachine struct {
	allowedTransitions map[string][]Transition
	internalActions    map[string]bool
}

// NewStateMachine creates a state machine from a from-status -> transitions table
func NewStateMachine(table map[string][]Transition, internal ...string) *StateMachine {
	sm := &StateMachine{
		allowedTransitions: make(map[string][]Transition, len(table)),
		internalActions:    make(map[string]bool, len(internal)),
	}
	for from, edges := range table {
		copied := make([]Transition, len(edges))
		copy(copied, edges)
		sm.allowedTransitions[from] = copied
	}
	for _, action := range internal {
		sm.internalActions[action] = true
	}
	return sm
}

// Resolve returns the target status for (from, action), if the pair is in the table
func (sm *StateMachine) Resolve(from, action string) (string, bool) {
	for _, t := range sm.allowedTransitions[from] {
		if t.Action == action {
			return t.To, true
		}
	}
	return "", false
}

// IsInternal reports whether the action may only be fired by the system itself
func (sm *StateMachine) IsInternal(action string) bool {
	return sm.internalActions[action]
}

// IsTerminal reports whether the status is in the table and no transitions leave it
func (sm *StateMachine) IsTerminal(status string) bool {
	edges, ok := sm.allowedTransitions[status]
	return ok && len(edges) == 0
}

// GetAllowedActions returns the user-invocable actions for a given status, in table order
func (sm *StateMachine) GetAllowedActions(from string) []string {
	actions := []string{}
	for _, t := range sm.allowedTransitions[from] {
		if sm.internalActions[t.Action] {
			continue
		}
		actions = append(actions, t.Action)
	}
	return actions
}
