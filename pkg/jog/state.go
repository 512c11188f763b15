package jog

// Mode is the kind of jog in flight.
type Mode int

const (
	// ModeHold is a button jog that runs until the button is released.
	ModeHold Mode = iota
	// ModeTick is a bounded jog issued for encoder detents.
	ModeTick
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeHold:
		return "hold"
	case ModeTick:
		return "tick"
	default:
		return "unknown"
	}
}

// JogState tracks whether a jog issued by the scene may still be moving.
// The zero value is idle.
type JogState struct {
	jogging bool
	mode    Mode
	axes    []int
}

// Idle reports whether no jog is in flight.
func (s *JogState) Idle() bool {
	return !s.jogging
}

// Mode returns the mode of the jog in flight. It is meaningless when idle.
func (s *JogState) Mode() Mode {
	return s.mode
}

// Axes returns the axes of the jog in flight.
func (s *JogState) Axes() []int {
	return s.axes
}

// Start records a new jog.
func (s *JogState) Start(axes []int, mode Mode) {
	s.jogging = true
	s.mode = mode
	s.axes = append(s.axes[:0], axes...)
}

// Stop returns to idle and reports whether a jog was in flight.
func (s *JogState) Stop() bool {
	was := s.jogging
	s.jogging = false
	s.axes = s.axes[:0]
	return was
}

// String describes the state for logs.
func (s *JogState) String() string {
	if !s.jogging {
		return "idle"
	}
	return "jogging(" + s.mode.String() + ")"
}
