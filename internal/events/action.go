// Package events builds the event-rule catalog for a form, binds it to a
// live value tree, and derives the visibility/validity/calculated state
// the rest of the questionnaire consumes.
package events

import "fmt"

// Action is the closed set of things an event rule can do to its
// targets.
type Action int

const (
	ActionHide Action = iota
	ActionDisable
	ActionFail
	ActionHideEnumeration
	ActionCalculate
)

// actions in wire order; also the iteration order wherever all actions
// are visited.
var allActions = []Action{ActionHide, ActionDisable, ActionFail, ActionHideEnumeration, ActionCalculate}

// ParseAction resolves a wire-format action name.
func ParseAction(name string) (Action, error) {
	switch name {
	case "hide":
		return ActionHide, nil
	case "disable":
		return ActionDisable, nil
	case "fail":
		return ActionFail, nil
	case "hideEnumeration":
		return ActionHideEnumeration, nil
	case "calculate":
		return ActionCalculate, nil
	default:
		return 0, fmt.Errorf("unknown event action %q", name)
	}
}

// String returns the wire-format name.
func (a Action) String() string {
	switch a {
	case ActionHide:
		return "hide"
	case ActionDisable:
		return "disable"
	case ActionFail:
		return "fail"
	case ActionHideEnumeration:
		return "hideEnumeration"
	case ActionCalculate:
		return "calculate"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}
