package scene

import (
	"fmt"

	"go.uber.org/zap"
)

// Manager owns the scene stack and implements Navigator.
type Manager struct {
	canvas  Canvas
	logger  *zap.Logger
	scenes  map[string]Scene
	stack   []Scene
	confirm *ConfirmScene
	help    *HelpScene
}

// NewManager creates a scene manager drawing on canvas. The confirmation and
// help scenes are registered automatically.
func NewManager(canvas Canvas, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		canvas: canvas,
		logger: logger,
		scenes: make(map[string]Scene),
	}
	m.confirm = NewConfirmScene(m)
	m.help = NewHelpScene(m)
	m.Register(m.confirm)
	m.Register(m.help)
	return m
}

// Register makes a scene reachable by its ID.
func (m *Manager) Register(s Scene) {
	m.scenes[s.ID()] = s
}

// Start clears the stack and activates the scene with the given ID as root.
func (m *Manager) Start(id string) error {
	s, ok := m.scenes[id]
	if !ok {
		return fmt.Errorf("scene '%s' not registered", id)
	}
	if top := m.Current(); top != nil {
		top.OnExit()
	}
	m.stack = []Scene{s}
	m.enter(s, ResultNone)
	return nil
}

// Current returns the active scene, or nil before Start.
func (m *Manager) Current() Scene {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// Depth returns the number of scenes on the stack.
func (m *Manager) Depth() int {
	return len(m.stack)
}

// Dispatch delivers an event to the active scene. A left flick goes back when
// there is a scene underneath.
func (m *Manager) Dispatch(ev Event) {
	top := m.Current()
	if top == nil {
		return
	}
	m.logger.Debug("dispatch", zap.String("scene", top.ID()), zap.Stringer("event", ev))

	if f, ok := ev.(Flick); ok && f.Direction == FlickLeft && len(m.stack) > 1 {
		res := ResultNone
		if top == Scene(m.confirm) {
			res = ResultCancelled
		}
		m.Back(res)
		return
	}
	top.Handle(ev)
}

// RequestRedraw draws the active scene synchronously.
func (m *Manager) RequestRedraw() {
	top := m.Current()
	if top == nil || m.canvas == nil {
		return
	}
	top.Draw(m.canvas)
	m.canvas.Flush()
}

// RequestConfirmation pushes the confirmation scene. The requesting scene is
// re-entered with ResultConfirmed or ResultCancelled.
func (m *Manager) RequestConfirmation(prompt string) {
	m.confirm.SetPrompt(prompt)
	m.push(m.confirm)
}

// ShowOverlay pushes the help scene showing lines.
func (m *Manager) ShowOverlay(lines []string) {
	m.help.SetLines(lines)
	m.push(m.help)
}

// Push stacks the scene with the given ID on top of the current one.
func (m *Manager) Push(id string) {
	s, ok := m.scenes[id]
	if !ok {
		m.logger.Warn("push of unknown scene", zap.String("scene", id))
		return
	}
	m.push(s)
}

// NavigateTo replaces the active scene with the scene with the given ID.
func (m *Manager) NavigateTo(id string) {
	s, ok := m.scenes[id]
	if !ok {
		m.logger.Warn("navigate to unknown scene", zap.String("scene", id))
		return
	}
	if len(m.stack) == 0 {
		m.stack = []Scene{s}
		m.enter(s, ResultNone)
		return
	}
	m.Current().OnExit()
	m.stack[len(m.stack)-1] = s
	m.enter(s, ResultNone)
}

// Back pops the active scene and re-enters the one below with res.
func (m *Manager) Back(res Result) {
	if len(m.stack) < 2 {
		return
	}
	m.Current().OnExit()
	m.stack = m.stack[:len(m.stack)-1]
	m.enter(m.Current(), res)
}

// Close exits every scene on the stack, top first.
func (m *Manager) Close() {
	for i := len(m.stack) - 1; i >= 0; i-- {
		m.stack[i].OnExit()
	}
	m.stack = nil
}

func (m *Manager) push(s Scene) {
	if top := m.Current(); top != nil {
		top.OnExit()
	}
	m.stack = append(m.stack, s)
	m.enter(s, ResultNone)
}

func (m *Manager) enter(s Scene, res Result) {
	m.logger.Debug("enter scene", zap.String("scene", s.ID()), zap.Stringer("result", res))
	s.OnEntry(res)
	m.RequestRedraw()
}
