package model

import "fmt"

// StepAction is the closed set of actions that appear in retrieval and return
// plans. Consumers switch on it exhaustively.
type StepAction int

const (
	// ActionRemove takes an obstructing item out of the container.
	ActionRemove StepAction = iota + 1
	// ActionRetrieve takes the target item out.
	ActionRetrieve
	// ActionPlaceBack reinserts a previously removed obstruction.
	ActionPlaceBack
	// ActionReturn moves a waste item to the return/undocking container.
	ActionReturn
)

var stepActionNames = map[StepAction]string{
	ActionRemove:    "remove",
	ActionRetrieve:  "retrieve",
	ActionPlaceBack: "placeBack",
	ActionReturn:    "return",
}

func (a StepAction) String() string {
	if s, ok := stepActionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("StepAction(%d)", int(a))
}

// MarshalText encodes the action by name.
func (a StepAction) MarshalText() ([]byte, error) {
	s, ok := stepActionNames[a]
	if !ok {
		return nil, fmt.Errorf("%w: unknown step action %d", ErrValidation, int(a))
	}
	return []byte(s), nil
}

// UnmarshalText decodes an action name.
func (a *StepAction) UnmarshalText(b []byte) error {
	for k, v := range stepActionNames {
		if v == string(b) {
			*a = k
			return nil
		}
	}
	return fmt.Errorf("%w: unknown step action %q", ErrValidation, string(b))
}

// Step is one operator instruction in a retrieval or return plan.
type Step struct {
	Number   int
	Action   StepAction
	ItemID   string
	ItemName string
	// ContainerID is the source container of the item at planning time.
	ContainerID string
}
