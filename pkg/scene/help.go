package scene

// HelpScene shows a few lines of text until the operator touches anything.
type HelpScene struct {
	nav   Navigator
	lines []string
}

// NewHelpScene creates a help overlay scene.
func NewHelpScene(nav Navigator) *HelpScene {
	return &HelpScene{nav: nav}
}

// SetLines replaces the text shown by the overlay.
func (s *HelpScene) SetLines(lines []string) {
	s.lines = append([]string(nil), lines...)
}

// Lines returns the text shown by the overlay.
func (s *HelpScene) Lines() []string {
	return s.lines
}

// ID returns IDHelp.
func (s *HelpScene) ID() string { return IDHelp }

// OnEntry does nothing.
func (s *HelpScene) OnEntry(Result) {}

// OnExit does nothing.
func (s *HelpScene) OnExit() {}

// Title is the first line of the overlay, if any.
func (s *HelpScene) Title() string {
	if len(s.lines) == 0 {
		return "Help"
	}
	return s.lines[0]
}

// Draw shows the lines after the title.
func (s *HelpScene) Draw(c Canvas) {
	c.Begin(s.Title())
	if len(s.lines) > 1 {
		c.Lines(s.lines[1:], -1)
	}
	c.Legends("", "Back", "")
}

// Handle returns to the previous scene on a tap, a flick or the dial button.
func (s *HelpScene) Handle(ev Event) {
	switch e := ev.(type) {
	case Tap, Flick:
		s.nav.Back(ResultNone)
	case ButtonPress:
		if e.Button == ButtonDial {
			s.nav.Back(ResultNone)
		}
	}
}
