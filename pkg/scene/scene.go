// Package scene provides the scene stack that drives the pendant screens.
//
// A scene receives the pendant's discrete input events, draws itself on a
// Canvas and asks its Navigator for redraws, confirmations and navigation.
// All calls happen on the single dispatch loop, so scenes need no locking.
package scene

import "jog-pendant/pkg/e4"

// Result is the outcome delivered to a scene when it becomes active again.
type Result int

const (
	// ResultNone means the scene was entered without a pending question.
	ResultNone Result = iota
	// ResultConfirmed means the operator accepted a confirmation prompt.
	ResultConfirmed
	// ResultCancelled means the operator rejected a confirmation prompt.
	ResultCancelled
)

// String returns the string representation of Result
func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultConfirmed:
		return "confirmed"
	case ResultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Well-known scene identifiers.
const (
	IDMenu    = "menu"
	IDJog     = "jog"
	IDFiles   = "files"
	IDConfirm = "confirm"
	IDHelp    = "help"
)

// Scene is one screen of the pendant.
type Scene interface {
	ID() string
	Title() string
	OnEntry(res Result)
	OnExit()
	Draw(c Canvas)
	Handle(ev Event)
}

// Navigator is the capability a scene uses to talk to the scene stack.
type Navigator interface {
	RequestRedraw()
	RequestConfirmation(prompt string)
	NavigateTo(id string)
	Push(id string)
	ShowOverlay(lines []string)
	Back(res Result)
}

// DRORow is one digital read-out line.
type DRORow struct {
	Label    string
	Value    e4.E4
	Decimals int
	// Power is the power of ten whose digit is highlighted.
	Power    int
	Selected bool
	// Limit is set while the axis limit switch is active.
	Limit bool
}

// Canvas is the opaque drawing surface scenes render on.
type Canvas interface {
	Begin(title string)
	DRO(row int, r DRORow)
	Lines(lines []string, highlight int)
	Legends(red, dial, green string)
	Status(text string)
	Flush()
}
