package scene

// ConfirmScene asks a yes/no question and returns the answer to the scene
// underneath it.
type ConfirmScene struct {
	nav    Navigator
	prompt string
}

// NewConfirmScene creates a confirmation scene.
func NewConfirmScene(nav Navigator) *ConfirmScene {
	return &ConfirmScene{nav: nav}
}

// SetPrompt sets the question shown on the next entry.
func (s *ConfirmScene) SetPrompt(prompt string) {
	s.prompt = prompt
}

// Prompt returns the current question.
func (s *ConfirmScene) Prompt() string {
	return s.prompt
}

// ID returns IDConfirm.
func (s *ConfirmScene) ID() string { return IDConfirm }

// Title returns the title drawn above the prompt.
func (s *ConfirmScene) Title() string { return "Confirm" }

// OnEntry does nothing; the prompt is set before the scene is pushed.
func (s *ConfirmScene) OnEntry(res Result) {}

// OnExit does nothing.
func (s *ConfirmScene) OnExit() {}

// Draw shows the prompt with the cancel and confirm legends.
func (s *ConfirmScene) Draw(c Canvas) {
	c.Begin(s.Title())
	c.Lines([]string{s.prompt}, -1)
	c.Legends("Cancel", "Yes", "Yes")
}

// Handle answers with the green or dial button and cancels with the red
// button or a flick.
func (s *ConfirmScene) Handle(ev Event) {
	switch e := ev.(type) {
	case ButtonPress:
		switch e.Button {
		case ButtonGreen, ButtonDial:
			s.nav.Back(ResultConfirmed)
		case ButtonRed:
			s.nav.Back(ResultCancelled)
		}
	case Flick:
		s.nav.Back(ResultCancelled)
	}
}
