package scene

import "fmt"

// Event is a discrete, already-debounced pendant input.
type Event interface {
	fmt.Stringer
	isEvent()
}

// Button identifies a physical pendant button.
type Button int

const (
	ButtonRed Button = iota
	ButtonGreen
	ButtonDial
)

// String returns the string representation of Button
func (b Button) String() string {
	switch b {
	case ButtonRed:
		return "red"
	case ButtonGreen:
		return "green"
	case ButtonDial:
		return "dial"
	default:
		return "unknown"
	}
}

// Direction is the direction of an edge flick.
type Direction int

const (
	FlickLeft Direction = iota
	FlickRight
)

// Change is what changed on the machine side.
type Change int

const (
	ChangeDRO Change = iota
	ChangeLimits
	ChangeAlarm
	ChangeState
	ChangeFiles
	// ChangeMessage is a new error, push message or cleared error.
	ChangeMessage
)

// String returns the string representation of Change
func (c Change) String() string {
	switch c {
	case ChangeDRO:
		return "dro"
	case ChangeLimits:
		return "limits"
	case ChangeAlarm:
		return "alarm"
	case ChangeState:
		return "state"
	case ChangeFiles:
		return "files"
	case ChangeMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Tap is a released touch. X and Y are relative to the panel centre with y
// pointing up.
type Tap struct{ X, Y int }

// Hold is a sustained touch in display pixels, origin top left.
type Hold struct{ X, Y int }

// Encoder is a rotary encoder movement in detents.
type Encoder struct{ Delta int }

// ButtonPress is a button going down.
type ButtonPress struct{ Button Button }

// ButtonRelease is a button coming up.
type ButtonRelease struct{ Button Button }

// Flick is an edge swipe.
type Flick struct{ Direction Direction }

// MachineChanged reports a controller-side change.
type MachineChanged struct{ Change Change }

func (Tap) isEvent()            {}
func (Hold) isEvent()           {}
func (Encoder) isEvent()        {}
func (ButtonPress) isEvent()    {}
func (ButtonRelease) isEvent()  {}
func (Flick) isEvent()          {}
func (MachineChanged) isEvent() {}

func (e Tap) String() string           { return fmt.Sprintf("tap(%d,%d)", e.X, e.Y) }
func (e Hold) String() string          { return fmt.Sprintf("hold(%d,%d)", e.X, e.Y) }
func (e Encoder) String() string       { return fmt.Sprintf("encoder(%d)", e.Delta) }
func (e ButtonPress) String() string   { return e.Button.String() + "-down" }
func (e ButtonRelease) String() string { return e.Button.String() + "-up" }
func (e MachineChanged) String() string {
	return "machine-" + e.Change.String()
}

func (e Flick) String() string {
	if e.Direction == FlickRight {
		return "flick-right"
	}
	return "flick-left"
}
