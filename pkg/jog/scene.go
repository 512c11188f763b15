package jog

import (
	"strings"

	"go.uber.org/zap"

	"jog-pendant/pkg/e4"
	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/scene"
)

// Transport carries commands to the motion controller.
type Transport interface {
	SendLine(line string) error
	SendRealtime(b byte) error
}

// Machine is the read-only view of the controller the scene draws and
// gates jogs on.
type Machine interface {
	Idle() bool
	Inches() bool
	WorkPosition(axis int) e4.E4
	StateName() string
	// Summary is the status line text.
	Summary() string
	// Pins lists the active input pins by letter, e.g. "XZ".
	Pins() string
}

// HelpText is shown when the centre of the panel is tapped.
var HelpText = []string{
	"Jog",
	"Touch:",
	"Top/Bottom: choose axis",
	"Left/Right: set digit",
	"Hold left: add/remove axis",
	"Turn: jog by digit",
	"Red/Grn: hold to jog",
	"Dial: zero axes",
}

// Config configures a jog scene.
type Config struct {
	Labels string
	Tuning Tuning
}

// Scene is the multi-axis jog screen.
type Scene struct {
	nav      scene.Navigator
	tx       Transport
	machine  Machine
	logger   *zap.Logger
	composer Composer
	layout   Layout

	sel   *Selection
	steps *Steps
	jog   JogState

	// pendingZero is the zero command awaiting confirmation.
	pendingZero string
}

// NewScene creates the jog scene with the first axis selected.
func NewScene(nav scene.Navigator, tx Transport, machine Machine, cfg Config, logger *zap.Logger) *Scene {
	if logger == nil {
		logger = zap.NewNop()
	}
	composer := NewComposer(cfg.Labels, cfg.Tuning)
	sel := NewSelection(len(composer.Labels))
	return &Scene{
		nav:      nav,
		tx:       tx,
		machine:  machine,
		logger:   logger.Named("jog"),
		composer: composer,
		layout:   NewLayout(sel.NumAxes()),
		sel:      sel,
		steps:    NewSteps(sel, DigitsFor(machine.Inches())),
	}
}

// Selection exposes the axis selection.
func (s *Scene) Selection() *Selection { return s.sel }

// Steps exposes the per axis step state.
func (s *Scene) Steps() *Steps { return s.steps }

// JogState exposes the jog in flight.
func (s *Scene) JogState() *JogState { return &s.jog }

// Layout returns the panel layout used for touches.
func (s *Scene) Layout() Layout { return s.layout }

// ID returns scene.IDJog.
func (s *Scene) ID() string { return scene.IDJog }

// Title returns the title drawn above the read-outs.
func (s *Scene) Title() string { return "Jog" }

// OnEntry performs a confirmed zero. Any other result drops it.
func (s *Scene) OnEntry(res scene.Result) {
	s.syncUnits()
	pending := s.pendingZero
	s.pendingZero = ""
	if res == scene.ResultConfirmed && pending != "" {
		s.sendLine(pending)
	}
}

// OnExit always cancels, whether or not a jog is known to be running.
func (s *Scene) OnExit() {
	s.cancel()
}

// Draw renders one read-out per axis and the machine status.
func (s *Scene) Draw(c scene.Canvas) {
	s.syncUnits()
	c.Begin(s.Title())
	pins := s.machine.Pins()
	for axis := 0; axis < s.sel.NumAxes(); axis++ {
		label := s.composer.Label(axis)
		c.DRO(axis, scene.DRORow{
			Label:    label,
			Value:    s.machine.WorkPosition(axis),
			Decimals: s.steps.Digits(),
			Power:    s.steps.Index(axis),
			Selected: s.sel.IsSelected(axis),
			Limit:    strings.Contains(pins, label),
		})
	}
	c.Legends("Jog-", "Zero", "Jog+")
	c.Status(s.machine.Summary())
}

// Handle dispatches one pendant event.
func (s *Scene) Handle(ev scene.Event) {
	s.syncUnits()
	switch e := ev.(type) {
	case scene.Tap:
		s.onTap(e.X, e.Y)
	case scene.Hold:
		s.onHold(e.X, e.Y)
	case scene.Encoder:
		s.tickJog(e.Delta)
	case scene.ButtonPress:
		switch e.Button {
		case scene.ButtonRed:
			s.holdJog(true)
		case scene.ButtonGreen:
			s.holdJog(false)
		case scene.ButtonDial:
			s.confirmZero()
		}
	case scene.ButtonRelease:
		if e.Button == scene.ButtonRed || e.Button == scene.ButtonGreen {
			s.cancel()
		}
	case scene.Flick:
		if e.Direction == scene.FlickRight {
			s.nav.NavigateTo(scene.IDFiles)
		}
	case scene.MachineChanged:
		s.onMachineChanged(e.Change)
	}
}

func (s *Scene) onTap(x, y int) {
	zone := s.layout.ClassifyTap(x, y)
	switch zone {
	case TapCenter:
		s.nav.ShowOverlay(HelpText)
		return
	case TapTop:
		s.sel.SelectPrevious()
	case TapBottom:
		s.sel.SelectNext()
	case TapLeft:
		s.steps.IncrementSelected()
	case TapRight:
		s.steps.DecrementSelected()
	}
	s.nav.RequestRedraw()
}

// onHold toggles the axis under the touch. The last selected axis stays
// selected.
func (s *Scene) onHold(x, y int) {
	axis := s.layout.HoldAxis(x, y)
	if axis == AxisNone || axis >= s.sel.NumAxes() {
		return
	}
	if s.sel.IsSelected(axis) && !s.sel.IsOnly(axis) {
		s.sel.Unselect(axis)
	} else {
		s.sel.Select(axis)
	}
	s.nav.RequestRedraw()
}

func (s *Scene) tickJog(delta int) {
	cmd, ok := s.composer.TickJog(s.sel, s.steps, s.machine.Inches(), delta)
	if !ok {
		return
	}
	s.sendLine(cmd)
	s.jog.Start(s.sel.Axes(), ModeTick)
}

func (s *Scene) holdJog(negative bool) {
	if !s.machine.Idle() {
		s.logger.Debug("button jog ignored", zap.String("state", s.machine.StateName()))
		return
	}
	s.sendLine(s.composer.HoldJog(s.sel, s.steps, s.machine.Inches(), negative))
	s.jog.Start(s.sel.Axes(), ModeHold)
}

func (s *Scene) confirmZero() {
	s.pendingZero = s.composer.Zero(s.sel)
	s.nav.RequestConfirmation("Zero " + s.composer.AxisNames(s.sel) + " ?")
}

func (s *Scene) onMachineChanged(change scene.Change) {
	switch change {
	case scene.ChangeAlarm:
		if !s.jog.Idle() {
			s.cancel()
		}
	case scene.ChangeFiles:
		return
	}
	// a tick jog may finish between two status reports
	if !s.jog.Idle() && s.jog.Mode() == ModeTick && s.machine.Idle() {
		s.jog.Stop()
	}
	s.nav.RequestRedraw()
}

func (s *Scene) cancel() {
	if s.jog.Stop() {
		s.logger.Debug("jog cancelled")
	}
	if err := s.tx.SendRealtime(grbl.JogCancel); err != nil {
		s.logger.Warn("jog cancel failed", zap.Error(err))
	}
}

func (s *Scene) sendLine(line string) {
	s.logger.Debug("send", zap.String("line", line))
	if err := s.tx.SendLine(line); err != nil {
		s.logger.Warn("send failed", zap.String("line", line), zap.Error(err))
	}
}

// syncUnits follows a unit change reported by the controller.
func (s *Scene) syncUnits() {
	if digits := DigitsFor(s.machine.Inches()); digits != s.steps.Digits() {
		s.steps.SetDigits(digits)
	}
}
