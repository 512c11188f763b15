package grbl

import (
	"fmt"

	"jog-pendant/pkg/e4"
	"jog-pendant/pkg/scene"
)

// MaxAxes is the number of axes tracked in positions.
const MaxAxes = 6

// Machine states reported by the controller.
const (
	StateIdle    = "Idle"
	StateJog     = "Jog"
	StateRun     = "Run"
	StateHold    = "Hold"
	StateAlarm   = "Alarm"
	StateHome    = "Home"
	StateUnknown = "Unknown"
)

// Machine is the pendant's model of the controller, built from the lines it
// sends. It is owned by the dispatch loop and is not safe for concurrent use.
type Machine struct {
	state    string
	inches   bool
	mpos     [MaxAxes]e4.E4
	wco      [MaxAxes]e4.E4
	pins     string
	alarm    int
	lastErr  int
	message  string
	files    []File
	incoming []File
	listing  bool
}

// NewMachine returns a machine in the unknown state. inches is the unit mode
// assumed until the controller reports its parser state.
func NewMachine(inches bool) *Machine {
	return &Machine{state: StateUnknown, inches: inches}
}

// Idle reports whether the controller accepts jogs.
func (m *Machine) Idle() bool { return m.state == StateIdle }

// Inches reports whether the controller is in G20 mode.
func (m *Machine) Inches() bool { return m.inches }

// StateName returns the controller state, e.g. "Idle" or "Alarm".
func (m *Machine) StateName() string { return m.state }

// Alarm returns the code of the last alarm, 0 if none was raised.
func (m *Machine) Alarm() int { return m.alarm }

// LastError returns the code of the last rejected command, 0 once a later
// command was accepted.
func (m *Machine) LastError() int { return m.lastErr }

// Message returns the last push message. It is dropped on a state change.
func (m *Machine) Message() string { return m.message }

// Pins returns the active input pins from the last status report, e.g. "XZ"
// while the X and Z limit switches are tripped.
func (m *Machine) Pins() string { return m.pins }

// Summary is the one line machine status shown on the pendant: the alarm
// code while alarmed, otherwise the state followed by the last error or
// message.
func (m *Machine) Summary() string {
	switch {
	case m.state == StateAlarm && m.alarm != 0:
		return fmt.Sprintf("Alarm %d", m.alarm)
	case m.lastErr != 0:
		return fmt.Sprintf("%s error:%d", m.state, m.lastErr)
	case m.message != "":
		return m.state + " " + m.message
	}
	return m.state
}

// WorkPosition returns the position of axis in the active work coordinate
// system.
func (m *Machine) WorkPosition(axis int) e4.E4 {
	if axis < 0 || axis >= MaxAxes {
		return 0
	}
	return m.mpos[axis] - m.wco[axis]
}

// Files returns the names from the last complete file listing.
func (m *Machine) Files() []string {
	names := make([]string, len(m.files))
	for i, f := range m.files {
		names[i] = f.Name
	}
	return names
}

// Apply updates the model from one controller line and returns what changed.
func (m *Machine) Apply(raw string) []scene.Change {
	line := Classify(raw)
	var changes []scene.Change

	switch line.Kind {
	case KindStatus:
		st, err := ParseStatus(line.Body)
		if err != nil {
			return nil
		}
		changes = m.applyStatus(st)
	case KindAlarm:
		m.alarm = line.Code
		changes = append(changes, scene.ChangeAlarm)
		if m.state != StateAlarm {
			m.state = StateAlarm
			changes = append(changes, scene.ChangeState)
		}
	case KindParserState:
		if inches, ok := Units(line.Body); ok && inches != m.inches {
			m.inches = inches
			changes = append(changes, scene.ChangeDRO)
		}
	case KindMessage:
		m.message = line.Body
		changes = append(changes, scene.ChangeMessage)
	case KindFile:
		if f, ok := ParseFile(line.Body); ok {
			if !m.listing {
				m.listing = true
				m.incoming = m.incoming[:0]
			}
			m.incoming = append(m.incoming, f)
		}
	case KindOK, KindError:
		switch {
		case line.Kind == KindError:
			m.lastErr = line.Code
			changes = append(changes, scene.ChangeMessage)
		case m.lastErr != 0:
			m.lastErr = 0
			changes = append(changes, scene.ChangeMessage)
		}
		if m.listing {
			m.listing = false
			m.files = append([]File(nil), m.incoming...)
			changes = append(changes, scene.ChangeFiles)
		}
	case KindWelcome:
		m.state = StateUnknown
		m.alarm = 0
		m.lastErr = 0
		m.message = ""
		changes = append(changes, scene.ChangeState)
	}
	return changes
}

func (m *Machine) applyStatus(st Status) []scene.Change {
	var changes []scene.Change

	if st.State != m.state {
		m.state = st.State
		m.message = ""
		changes = append(changes, scene.ChangeState)
		if st.State == StateAlarm {
			changes = append(changes, scene.ChangeAlarm)
		}
	}

	moved := false
	if st.WCO != nil {
		moved = copyVector(m.wco[:], st.WCO) || moved
	}
	switch {
	case st.MPos != nil:
		moved = copyVector(m.mpos[:], st.MPos) || moved
	case st.WPos != nil:
		mpos := make([]e4.E4, len(st.WPos))
		for i, w := range st.WPos {
			mpos[i] = w
			if i < MaxAxes {
				mpos[i] += m.wco[i]
			}
		}
		moved = copyVector(m.mpos[:], mpos) || moved
	}
	if moved {
		changes = append(changes, scene.ChangeDRO)
	}

	// Pn is omitted when no pin is active.
	if st.Pins != m.pins {
		m.pins = st.Pins
		changes = append(changes, scene.ChangeLimits)
	}
	return changes
}

func copyVector(dst, src []e4.E4) bool {
	changed := false
	for i := 0; i < len(dst) && i < len(src); i++ {
		if dst[i] != src[i] {
			dst[i] = src[i]
			changed = true
		}
	}
	return changed
}
