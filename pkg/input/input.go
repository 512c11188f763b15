// Package input turns terminal keys and mouse gestures into pendant events.
//
// Terminals report neither touch holds nor key releases, so both are
// synthesised with timers that post tcell interrupts back to the event loop.
// Translate must be called from that loop.
package input

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"jog-pendant/pkg/jog"
	"jog-pendant/pkg/scene"
	"jog-pendant/pkg/ui"
)

// Gesture defaults.
const (
	DefaultHoldDelay  = 500 * time.Millisecond
	DefaultKeyRelease = 600 * time.Millisecond
	// FlickDistance is the horizontal travel in display pixels that turns a
	// drag into a flick.
	FlickDistance = 30
)

// Command is a request for the application rather than for a scene.
type Command int

const (
	CommandNone Command = iota
	CommandKeys
	CommandTraffic
	CommandQuit
)

// Poster queues an event on the loop. tcell.Screen satisfies it.
type Poster interface {
	PostEvent(ev tcell.Event) error
}

// Options configures a Translator.
type Options struct {
	HoldDelay  time.Duration
	KeyRelease time.Duration
	Logger     *zap.Logger
}

// holdElapsed is posted when a touch stayed down for the hold delay.
type holdElapsed struct {
	seq  uint64
	x, y int
}

// keyReleased is posted when a button key stopped repeating.
type keyReleased struct {
	button scene.Button
}

// Translator converts tcell events into scene events.
type Translator struct {
	poster    Poster
	keymap    *Keymap
	holdDelay time.Duration
	logger    *zap.Logger

	// touch in progress
	touching       bool
	startX, startY int
	lastX, lastY   int
	holdSeq        uint64
	holdTimer      *time.Timer
	held           bool

	// legend strip button held by the mouse
	mouseButton *scene.Button

	mu       sync.Mutex
	keysDown map[scene.Button]bool
	release  map[scene.Button]func(func())
}

// NewTranslator creates a translator posting its timers to poster.
func NewTranslator(poster Poster, keymap *Keymap, opts Options) *Translator {
	if opts.HoldDelay <= 0 {
		opts.HoldDelay = DefaultHoldDelay
	}
	if opts.KeyRelease <= 0 {
		opts.KeyRelease = DefaultKeyRelease
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	t := &Translator{
		poster:    poster,
		keymap:    keymap,
		holdDelay: opts.HoldDelay,
		logger:    opts.Logger.Named("input"),
		keysDown:  make(map[scene.Button]bool),
		release:   make(map[scene.Button]func(func())),
	}
	for _, b := range []scene.Button{scene.ButtonRed, scene.ButtonGreen, scene.ButtonDial} {
		t.release[b] = debounce.New(opts.KeyRelease)
	}
	return t
}

// Keymap returns the key bindings.
func (t *Translator) Keymap() *Keymap {
	return t.keymap
}

// Translate converts ev into zero or more scene events and an optional
// application command.
func (t *Translator) Translate(ev tcell.Event) ([]scene.Event, Command) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return t.key(e)
	case *tcell.EventMouse:
		return t.mouse(e), CommandNone
	case *tcell.EventInterrupt:
		return t.interrupt(e.Data()), CommandNone
	}
	return nil, CommandNone
}

// Stop cancels pending hold timers.
func (t *Translator) Stop() {
	if t.holdTimer != nil {
		t.holdTimer.Stop()
	}
}

func (t *Translator) key(ev *tcell.EventKey) ([]scene.Event, Command) {
	b := t.keymap.Lookup(ev)
	if b == nil {
		return nil, CommandNone
	}
	switch b.Action {
	case ActionQuit:
		return nil, CommandQuit
	case ActionKeys:
		return nil, CommandKeys
	case ActionTraffic:
		return nil, CommandTraffic
	case ActionButton:
		return t.buttonKey(b.Button), CommandNone
	}
	return append([]scene.Event(nil), b.Events...), CommandNone
}

// buttonKey presses button on the first key event and re-arms the release
// timer on every auto-repeat.
func (t *Translator) buttonKey(button scene.Button) []scene.Event {
	t.mu.Lock()
	wasDown := t.keysDown[button]
	t.keysDown[button] = true
	t.mu.Unlock()

	t.release[button](func() {
		t.post(keyReleased{button: button})
	})
	if wasDown {
		return nil
	}
	return []scene.Event{scene.ButtonPress{Button: button}}
}

func (t *Translator) mouse(ev *tcell.EventMouse) []scene.Event {
	buttons := ev.Buttons()
	switch {
	case buttons&tcell.WheelUp != 0:
		return []scene.Event{scene.Encoder{Delta: 1}}
	case buttons&tcell.WheelDown != 0:
		return []scene.Event{scene.Encoder{Delta: -1}}
	}

	cx, cy := ev.Position()
	x, y, inside := ui.ToDisplay(cx, cy)

	if buttons&tcell.Button1 != 0 {
		if t.touching {
			if inside {
				t.drag(x, y)
			}
			return nil
		}
		if t.mouseButton != nil || !inside {
			return nil
		}
		return t.press(x, y)
	}

	if buttons == tcell.ButtonNone {
		return t.releaseMouse()
	}
	return nil
}

func (t *Translator) press(x, y int) []scene.Event {
	if y >= ui.LegendStripY {
		b := legendButton(x)
		t.mouseButton = &b
		return []scene.Event{scene.ButtonPress{Button: b}}
	}

	t.touching = true
	t.held = false
	t.startX, t.startY = x, y
	t.lastX, t.lastY = x, y
	t.holdSeq++
	seq := t.holdSeq
	t.holdTimer = time.AfterFunc(t.holdDelay, func() {
		t.post(holdElapsed{seq: seq, x: x, y: y})
	})
	return nil
}

// drag follows the pointer. Moving away from the press point rules out a
// hold.
func (t *Translator) drag(x, y int) {
	t.lastX, t.lastY = x, y
	if abs(x-t.startX) > FlickDistance || abs(y-t.startY) > FlickDistance {
		t.holdSeq++
		if t.holdTimer != nil {
			t.holdTimer.Stop()
		}
	}
}

func (t *Translator) releaseMouse() []scene.Event {
	if t.mouseButton != nil {
		b := *t.mouseButton
		t.mouseButton = nil
		return []scene.Event{scene.ButtonRelease{Button: b}}
	}
	if !t.touching {
		return nil
	}

	t.touching = false
	t.holdSeq++
	if t.holdTimer != nil {
		t.holdTimer.Stop()
	}
	if t.held {
		return nil
	}

	dx, dy := t.lastX-t.startX, t.lastY-t.startY
	if abs(dx) > FlickDistance && abs(dx) > abs(dy) {
		dir := scene.FlickLeft
		if dx > 0 {
			dir = scene.FlickRight
		}
		return []scene.Event{scene.Flick{Direction: dir}}
	}
	return []scene.Event{scene.Tap{
		X: t.lastX - jog.PanelWidth/2,
		Y: jog.PanelHeight/2 - t.lastY,
	}}
}

func (t *Translator) interrupt(data interface{}) []scene.Event {
	switch d := data.(type) {
	case holdElapsed:
		if !t.touching || d.seq != t.holdSeq {
			return nil
		}
		t.held = true
		return []scene.Event{scene.Hold{X: d.x, Y: d.y}}

	case keyReleased:
		t.mu.Lock()
		wasDown := t.keysDown[d.button]
		delete(t.keysDown, d.button)
		t.mu.Unlock()
		if !wasDown {
			return nil
		}
		return []scene.Event{scene.ButtonRelease{Button: d.button}}
	}
	return nil
}

func (t *Translator) post(data interface{}) {
	if err := t.poster.PostEvent(tcell.NewEventInterrupt(data)); err != nil {
		t.logger.Debug("post dropped", zap.Error(err))
	}
}

// legendButton maps a display x in the legend strip onto a button.
func legendButton(x int) scene.Button {
	third := jog.PanelWidth / 3
	switch {
	case x < third:
		return scene.ButtonRed
	case x >= 2*third:
		return scene.ButtonGreen
	default:
		return scene.ButtonDial
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
