package domain

// TransitionPolicy decides whether an incident may move from one status to another.
// The lifecycle itself allows every transition; a policy is layered on top by callers
// that want stricter rules.
type TransitionPolicy interface {
	Allowed(from, to Status) bool
}

// PermissiveTransitions allows any status to follow any other.
type PermissiveTransitions struct{}

// Allowed always returns true.
func (PermissiveTransitions) Allowed(_, _ Status) bool { return true }

// ForwardTransitions only allows staying put or moving forward one step at a time,
// with reopening from resolved back to in progress.
type ForwardTransitions struct{}

// Allowed implements TransitionPolicy.
func (ForwardTransitions) Allowed(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusOpen:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusResolved
	case StatusResolved:
		return to == StatusClosed || to == StatusInProgress
	case StatusClosed:
		return false
	}
	return false
}
