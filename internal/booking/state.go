package booking

import "github.com/iliyamo/vehicle-rental/internal/model"

var transitions = map[string][]string{
	model.StatusPending:    {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed:  {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusCancelled},
}

// CanTransition reports whether the lifecycle allows from -> to.  Completed
// and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions exist from s.
func IsTerminal(s string) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}
