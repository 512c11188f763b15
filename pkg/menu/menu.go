// Package menu provides the pendant's main menu scene.
package menu

import (
	"go.uber.org/zap"

	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/scene"
)

// CountsPerStep is the number of encoder counts that move the selection by
// one item.
const CountsPerStep = 4

// Transport carries menu commands to the controller.
type Transport interface {
	SendLine(line string) error
	SendRealtime(b byte) error
}

// Menu is a dial-driven list of actions.
type Menu struct {
	nav      scene.Navigator
	logger   *zap.Logger
	title    string
	items    []MenuItem
	selected int
	// counts accumulates encoder movement between steps
	counts int
	status func() string
}

// MenuItem represents a single menu item
type MenuItem struct {
	Label   string
	Action  func() error
	Enabled bool
}

// NewMenu creates a new menu
func NewMenu(nav scene.Navigator, title string, logger *zap.Logger) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{
		nav:    nav,
		logger: logger.Named("menu"),
		title:  title,
		items:  make([]MenuItem, 0),
	}
}

// NewMainMenu creates the root menu: the jog and file scenes plus the homing,
// unlock and reset commands.
func NewMainMenu(nav scene.Navigator, tx Transport, logger *zap.Logger) *Menu {
	m := NewMenu(nav, "Menu", logger)
	m.AddItem("Jog", func() error {
		nav.Push(scene.IDJog)
		return nil
	})
	m.AddItem("Files", func() error {
		nav.Push(scene.IDFiles)
		return nil
	})
	m.AddItem("Home", func() error {
		return tx.SendLine(grbl.HomeCommand)
	})
	m.AddItem("Unlock", func() error {
		return tx.SendLine(grbl.UnlockCommand)
	})
	m.AddItem("Reset", func() error {
		return tx.SendRealtime(grbl.SoftReset)
	})
	return m
}

// AddItem adds a menu item
func (m *Menu) AddItem(label string, action func() error) {
	m.items = append(m.items, MenuItem{
		Label:   label,
		Action:  action,
		Enabled: true,
	})
}

// SetStatus sets the source of the status line.
func (m *Menu) SetStatus(status func() string) {
	m.status = status
}

// Items returns the menu items.
func (m *Menu) Items() []MenuItem {
	return m.items
}

// Selected returns the index of the highlighted item.
func (m *Menu) Selected() int {
	return m.selected
}

// ID returns scene.IDMenu.
func (m *Menu) ID() string { return scene.IDMenu }

// Title returns the menu title.
func (m *Menu) Title() string { return m.title }

// OnEntry drops encoder counts left over from before the menu was covered.
func (m *Menu) OnEntry(scene.Result) {
	m.counts = 0
}

// OnExit does nothing.
func (m *Menu) OnExit() {}

// Draw lists the items with disabled ones in parentheses.
func (m *Menu) Draw(c scene.Canvas) {
	c.Begin(m.title)
	labels := make([]string, len(m.items))
	for i, item := range m.items {
		labels[i] = item.Label
		if !item.Enabled {
			labels[i] = "(" + item.Label + ")"
		}
	}
	c.Lines(labels, m.selected)
	c.Legends("", "Select", "")
	if m.status != nil {
		c.Status(m.status())
	}
}

// Handle moves the selection with the encoder and taps, and activates the
// selected item with the dial button.
func (m *Menu) Handle(ev scene.Event) {
	switch e := ev.(type) {
	case scene.Encoder:
		m.counts += e.Delta
		moved := false
		for m.counts >= CountsPerStep {
			m.counts -= CountsPerStep
			moved = m.moveSelection(1) || moved
		}
		for m.counts <= -CountsPerStep {
			m.counts += CountsPerStep
			moved = m.moveSelection(-1) || moved
		}
		if moved {
			m.nav.RequestRedraw()
		}

	case scene.Tap:
		// taps above the centre move up, below move down
		dir := -1
		if e.Y < 0 {
			dir = 1
		}
		if e.Y != 0 && m.moveSelection(dir) {
			m.nav.RequestRedraw()
		}

	case scene.ButtonPress:
		if e.Button == scene.ButtonDial {
			m.activateSelected()
		}

	case scene.MachineChanged:
		switch e.Change {
		case scene.ChangeState, scene.ChangeAlarm, scene.ChangeMessage:
			m.nav.RequestRedraw()
		}
	}
}

// moveSelection moves the selection up or down, skipping disabled items.
// It reports whether the selection changed.
func (m *Menu) moveSelection(direction int) bool {
	itemCount := len(m.items)
	if itemCount == 0 {
		return false
	}
	newSelected := m.selected

	for {
		newSelected += direction
		if newSelected < 0 {
			newSelected = itemCount - 1
		} else if newSelected >= itemCount {
			newSelected = 0
		}

		// Prevent infinite loop if all items are disabled
		if newSelected == m.selected {
			return false
		}

		if m.items[newSelected].Enabled {
			m.selected = newSelected
			return true
		}
	}
}

// activateSelected activates the currently selected item
func (m *Menu) activateSelected() {
	if m.selected < 0 || m.selected >= len(m.items) {
		return
	}

	item := m.items[m.selected]
	if !item.Enabled || item.Action == nil {
		return
	}

	m.logger.Info("menu action", zap.String("item", item.Label))
	if err := item.Action(); err != nil {
		m.logger.Warn("menu action failed", zap.String("item", item.Label), zap.Error(err))
	}
}

// EnableItem enables or disables a menu item
func (m *Menu) EnableItem(index int, enabled bool) {
	if index >= 0 && index < len(m.items) {
		m.items[index].Enabled = enabled
	}
}

// Clear removes all menu items
func (m *Menu) Clear() {
	m.items = []MenuItem{}
	m.selected = 0
}
