package input

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"jog-pendant/pkg/jog"
	"jog-pendant/pkg/scene"
)

// Action is what a key binding does when it matches.
type Action int

const (
	// ActionEmit delivers the binding's events as they are.
	ActionEmit Action = iota
	// ActionButton presses a pendant button until the key stops repeating.
	ActionButton
	// ActionKeys shows the key bindings.
	ActionKeys
	// ActionTraffic shows the recent controller traffic.
	ActionTraffic
	// ActionQuit stops the pendant.
	ActionQuit
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionEmit:
		return "emit"
	case ActionButton:
		return "button"
	case ActionKeys:
		return "keys"
	case ActionTraffic:
		return "traffic"
	case ActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Binding maps a key to pendant input.
type Binding struct {
	Name        string
	Key         tcell.Key
	Char        rune
	Mods        tcell.ModMask
	Action      Action
	Events      []scene.Event
	Button      scene.Button
	Description string
	Enabled     bool
}

// Matches checks if the given key event matches this binding. Shift is
// ignored for rune keys and Ctrl is implied for control keys.
func (b *Binding) Matches(key tcell.Key, char rune, mods tcell.ModMask) bool {
	if !b.Enabled {
		return false
	}

	if b.Key == tcell.KeyRune {
		return key == tcell.KeyRune && b.Char == char && mods&^tcell.ModShift == b.Mods&^tcell.ModShift
	}

	if b.Key != key {
		return false
	}
	if isControlKey(key) {
		return mods&^tcell.ModCtrl == b.Mods&^tcell.ModCtrl
	}
	return mods == b.Mods
}

func isControlKey(k tcell.Key) bool {
	return k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ
}

// Keymap holds the key bindings of the pendant in the order they were added.
type Keymap struct {
	bindings []*Binding
}

// NewKeymap creates a keymap with the default bindings. The digit keys hold
// the axis rows of layout.
func NewKeymap(layout jog.Layout) *Keymap {
	km := &Keymap{}
	km.addDefaultBindings(layout)
	return km
}

// addDefaultBindings adds the default pendant bindings
func (km *Keymap) addDefaultBindings(layout jog.Layout) {
	tap := func(name string, key tcell.Key, x, y int, desc string) {
		km.AddBinding(&Binding{
			Name:        name,
			Key:         key,
			Action:      ActionEmit,
			Events:      []scene.Event{scene.Tap{X: x, Y: y}},
			Description: desc,
			Enabled:     true,
		})
	}
	tap("up", tcell.KeyUp, 0, 90, "Tap top")
	tap("down", tcell.KeyDown, 0, -90, "Tap bottom")
	tap("left", tcell.KeyLeft, -90, 0, "Tap left")
	tap("right", tcell.KeyRight, 90, 0, "Tap right")

	turn := func(name string, char rune, delta int) {
		desc := "Turn dial right"
		if delta < 0 {
			desc = "Turn dial left"
		}
		km.AddBinding(&Binding{
			Name:        name,
			Key:         tcell.KeyRune,
			Char:        char,
			Action:      ActionEmit,
			Events:      []scene.Event{scene.Encoder{Delta: delta}},
			Description: desc,
			Enabled:     true,
		})
	}
	turn("turn-right", ']', 1)
	turn("turn-left", '[', -1)
	turn("turn-right-plus", '+', 1)
	turn("turn-left-minus", '-', -1)

	km.AddBinding(&Binding{
		Name:        "red",
		Key:         tcell.KeyRune,
		Char:        'r',
		Action:      ActionButton,
		Button:      scene.ButtonRed,
		Description: "Hold red button",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "green",
		Key:         tcell.KeyRune,
		Char:        'g',
		Action:      ActionButton,
		Button:      scene.ButtonGreen,
		Description: "Hold green button",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:   "dial",
		Key:    tcell.KeyEnter,
		Action: ActionEmit,
		Events: []scene.Event{
			scene.ButtonPress{Button: scene.ButtonDial},
			scene.ButtonRelease{Button: scene.ButtonDial},
		},
		Description: "Press dial",
		Enabled:     true,
	})

	for axis := 0; axis < layout.NumAxes; axis++ {
		km.AddBinding(&Binding{
			Name:        fmt.Sprintf("hold-%d", axis+1),
			Key:         tcell.KeyRune,
			Char:        rune('1' + axis),
			Action:      ActionEmit,
			Events:      []scene.Event{scene.Hold{X: jog.HoldBandX / 4, Y: layout.RowCenterY(axis)}},
			Description: fmt.Sprintf("Hold row %d", axis+1),
			Enabled:     true,
		})
	}

	km.AddBinding(&Binding{
		Name:        "back",
		Key:         tcell.KeyEscape,
		Action:      ActionEmit,
		Events:      []scene.Event{scene.Flick{Direction: scene.FlickLeft}},
		Description: "Flick left",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "forward",
		Key:         tcell.KeyTab,
		Action:      ActionEmit,
		Events:      []scene.Event{scene.Flick{Direction: scene.FlickRight}},
		Description: "Flick right",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "help",
		Key:         tcell.KeyRune,
		Char:        '?',
		Action:      ActionEmit,
		Events:      []scene.Event{scene.Tap{}},
		Description: "Tap centre",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "keys",
		Key:         tcell.KeyF1,
		Action:      ActionKeys,
		Description: "Show keys",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "traffic",
		Key:         tcell.KeyF2,
		Action:      ActionTraffic,
		Description: "Show traffic",
		Enabled:     true,
	})
	km.AddBinding(&Binding{
		Name:        "quit",
		Key:         tcell.KeyCtrlQ,
		Mods:        tcell.ModCtrl,
		Action:      ActionQuit,
		Description: "Quit",
		Enabled:     true,
	})
}

// AddBinding adds a binding, replacing any binding with the same name.
func (km *Keymap) AddBinding(b *Binding) {
	for i, existing := range km.bindings {
		if existing.Name == b.Name {
			km.bindings[i] = b
			return
		}
	}
	km.bindings = append(km.bindings, b)
}

// RemoveBinding removes a binding by name
func (km *Keymap) RemoveBinding(name string) {
	for i, b := range km.bindings {
		if b.Name == name {
			km.bindings = append(km.bindings[:i], km.bindings[i+1:]...)
			return
		}
	}
}

// GetBinding returns a binding by name
func (km *Keymap) GetBinding(name string) *Binding {
	for _, b := range km.bindings {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ListBindings returns all bindings in the order they were added.
func (km *Keymap) ListBindings() []*Binding {
	return append([]*Binding(nil), km.bindings...)
}

// EnableBinding enables a binding by name
func (km *Keymap) EnableBinding(name string) {
	if b := km.GetBinding(name); b != nil {
		b.Enabled = true
	}
}

// DisableBinding disables a binding by name
func (km *Keymap) DisableBinding(name string) {
	if b := km.GetBinding(name); b != nil {
		b.Enabled = false
	}
}

// Lookup returns the first enabled binding matching ev, or nil.
func (km *Keymap) Lookup(ev *tcell.EventKey) *Binding {
	for _, b := range km.bindings {
		if b.Matches(ev.Key(), ev.Rune(), ev.Modifiers()) {
			return b
		}
	}
	return nil
}

// Help returns one line per enabled binding, headed by a title line so it
// can be shown as an overlay.
func (km *Keymap) Help() []string {
	lines := []string{"Keys"}
	for _, b := range km.bindings {
		if !b.Enabled {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-8s %s", formatKeyDescription(b), b.Description))
	}
	return lines
}

// formatKeyDescription formats a key combination for display
func formatKeyDescription(b *Binding) string {
	var parts []string
	var keyName string
	if b.Key == tcell.KeyRune {
		keyName = string(b.Char)
	} else if name, ok := tcell.KeyNames[b.Key]; ok {
		keyName = name
	} else {
		keyName = fmt.Sprintf("Key[%d]", b.Key)
	}

	if b.Mods&tcell.ModCtrl != 0 && !strings.HasPrefix(keyName, "Ctrl-") {
		parts = append(parts, "Ctrl")
	}
	if b.Mods&tcell.ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if b.Mods&tcell.ModShift != 0 {
		parts = append(parts, "Shift")
	}

	if len(parts) > 0 {
		return strings.Join(parts, "+") + "+" + keyName
	}
	return keyName
}
