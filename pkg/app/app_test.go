package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap/zapcore"

	"jog-pendant/pkg/e4"
	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/history"
	"jog-pendant/pkg/logging"
	"jog-pendant/pkg/scene"
	"jog-pendant/pkg/serial"
	"jog-pendant/pkg/ui"
)

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	if err := s.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.SetSize(ui.Cols, ui.Rows)
	return s
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	app, err := New(newSimScreen(t), grbl.NewSimulator(3), DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return app
}

func key(k tcell.Key, r rune, mods tcell.ModMask) *tcell.EventKey {
	return tcell.NewEventKey(k, r, mods)
}

func sentLines(app *Application) []string {
	var lines []string
	for _, e := range app.Traffic().Tail(app.Traffic().GetEntryCount()) {
		if e.Direction == history.DirectionOutput {
			lines = append(lines, e.Line)
		}
	}
	return lines
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if err := opts.Settings.Validate(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
	if opts.HistorySize != history.DefaultMaxEntries {
		t.Errorf("HistorySize = %d, want %d", opts.HistorySize, history.DefaultMaxEntries)
	}
	if opts.HistoryFile != "" {
		t.Errorf("HistoryFile = %q, want empty", opts.HistoryFile)
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	opts := DefaultOptions()
	opts.Settings.Axes = "XXY"

	if _, err := New(newSimScreen(t), grbl.NewSimulator(3), opts, nil); err == nil {
		t.Error("New() with duplicate axes should fail")
	}
}

func TestHandleEventControllerLine(t *testing.T) {
	app := newTestApp(t)

	quit := app.handleEvent(tcell.NewEventInterrupt(controllerLine("<Idle|MPos:1.000,2.000,0.000|FS:0,0>")))
	if quit {
		t.Fatal("handleEvent() = true for a status line")
	}
	if got := app.machine.StateName(); got != grbl.StateIdle {
		t.Errorf("StateName() = %q, want %q", got, grbl.StateIdle)
	}
	if got := app.machine.WorkPosition(1); got != e4.FromInt(2) {
		t.Errorf("WorkPosition(1) = %v, want %v", got, e4.FromInt(2))
	}
}

func TestHandleEventEnds(t *testing.T) {
	tests := []struct {
		name string
		ev   tcell.Event
		want bool
	}{
		{"quit key", key(tcell.KeyCtrlQ, 0, tcell.ModCtrl), true},
		{"quit request", tcell.NewEventInterrupt(quitRequest{}), true},
		{"controller closed", tcell.NewEventInterrupt(controllerDone{}), true},
		{"resize", tcell.NewEventResize(ui.Cols, ui.Rows), false},
		{"unbound key", key(tcell.KeyRune, 'z', 0), false},
		{"foreign interrupt", tcell.NewEventInterrupt(42), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			if err := app.manager.Start(scene.IDMenu); err != nil {
				t.Fatal(err)
			}
			if got := app.handleEvent(tt.ev); got != tt.want {
				t.Errorf("handleEvent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleEventKeysOverlay(t *testing.T) {
	app := newTestApp(t)
	if err := app.manager.Start(scene.IDMenu); err != nil {
		t.Fatal(err)
	}

	app.handleEvent(key(tcell.KeyF1, 0, 0))

	if got := app.manager.Current().ID(); got != scene.IDHelp {
		t.Fatalf("Current() = %q, want %q", got, scene.IDHelp)
	}
}

func TestHandleEventLinkLost(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"stream failed", errors.New("device unplugged"), true},
		{"stream closed", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			if !app.handleEvent(tcell.NewEventInterrupt(controllerDone{err: tt.err})) {
				t.Fatal("handleEvent() did not end the loop")
			}
			if got := app.LinkLost(); got != tt.want {
				t.Errorf("LinkLost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleEventTrafficOverlay(t *testing.T) {
	app := newTestApp(t)
	if err := app.manager.Start(scene.IDMenu); err != nil {
		t.Fatal(err)
	}
	if err := app.ctrl.SendLine("$X"); err != nil {
		t.Fatal(err)
	}

	app.handleEvent(key(tcell.KeyF2, 0, 0))

	help, ok := app.manager.Current().(*scene.HelpScene)
	if !ok {
		t.Fatalf("Current() = %T, want the overlay", app.manager.Current())
	}
	lines := help.Lines()
	if want := fmt.Sprintf("Traffic 1/%d", history.DefaultMaxEntries); lines[0] != want {
		t.Errorf("title = %q, want %q", lines[0], want)
	}
	if lines[len(lines)-1] != "> $X" {
		t.Errorf("last line = %q, want %q", lines[len(lines)-1], "> $X")
	}
}

func TestTrafficLinesFitOverlay(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < ui.MaxLines*2; i++ {
		if err := app.ctrl.SendLine(fmt.Sprintf("G4P0.%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	lines := app.trafficLines()
	if len(lines) != ui.MaxLines+1 {
		t.Fatalf("trafficLines() = %d lines, want %d", len(lines), ui.MaxLines+1)
	}
	if want := fmt.Sprintf("> G4P0.%d", ui.MaxLines*2-1); lines[len(lines)-1] != want {
		t.Errorf("last line = %q, want %q", lines[len(lines)-1], want)
	}
}

func TestNewKeepsTrafficLog(t *testing.T) {
	opts := DefaultOptions()
	opts.Traffic = history.NewTrafficLog(10)

	app, err := New(newSimScreen(t), grbl.NewSimulator(3), opts, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if app.Traffic() != opts.Traffic {
		t.Error("Traffic() is not the log passed in Options")
	}
}

func TestMenuToJogSendsTickJog(t *testing.T) {
	app := newTestApp(t)
	if err := app.manager.Start(scene.IDMenu); err != nil {
		t.Fatal(err)
	}
	app.applyLine("<Idle|MPos:0.000,0.000,0.000|FS:0,0>")

	// the first menu item opens the jog scene
	app.handleEvent(key(tcell.KeyEnter, 0, 0))
	if got := app.manager.Current().ID(); got != scene.IDJog {
		t.Fatalf("Current() = %q, want %q", got, scene.IDJog)
	}

	app.handleEvent(key(tcell.KeyRune, ']', 0))

	var jogs []string
	for _, line := range sentLines(app) {
		if strings.HasPrefix(line, "$J=") {
			jogs = append(jogs, line)
		}
	}
	if len(jogs) != 1 {
		t.Fatalf("sent jogs = %q, want one", jogs)
	}
	if !strings.Contains(jogs[0], "X") {
		t.Errorf("jog %q does not move X", jogs[0])
	}
}

func TestApplyLineAlarmReachesJog(t *testing.T) {
	app := newTestApp(t)
	if err := app.manager.Start(scene.IDJog); err != nil {
		t.Fatal(err)
	}
	app.applyLine("<Idle|MPos:0.000,0.000,0.000|FS:0,0>")
	app.handleEvent(key(tcell.KeyRune, ']', 0))

	app.applyLine("ALARM:1")

	lines := sentLines(app)
	if len(lines) == 0 || lines[len(lines)-1] != "<0x85>" {
		t.Errorf("last sent = %q, want the jog cancel", lines)
	}
}

func TestRunQuitSavesHistory(t *testing.T) {
	logger, logs := logging.NewObserved(zapcore.InfoLevel)
	opts := DefaultOptions()
	opts.HistoryFile = filepath.Join(t.TempDir(), "traffic.log")

	app, err := New(newSimScreen(t), grbl.NewSimulator(3), opts, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	app.Quit()

	errc := make(chan error, 1)
	go func() { errc <- app.Run() }()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after Quit")
	}

	if app.IsRunning() {
		t.Error("IsRunning() = true after Run returned")
	}
	if _, err := os.Stat(opts.HistoryFile); err != nil {
		t.Errorf("history file not written: %v", err)
	}
	if logs.FilterMessage("pendant stopped").Len() != 1 {
		t.Errorf("missing stop log, got %v", logs.All())
	}
}

func TestStopBeforeStart(t *testing.T) {
	app := newTestApp(t)
	if err := app.Stop(); err != nil {
		t.Errorf("Stop() before Start error = %v", err)
	}
}

func TestStartTwice(t *testing.T) {
	app := newTestApp(t)
	if err := app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer app.Stop()

	if err := app.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestRunnerConnectSimulated(t *testing.T) {
	r := NewRunner(RunnerConfig{Options: DefaultOptions(), Simulate: true}, nil)

	port, err := r.Connect()
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer port.Close()

	if _, ok := port.(*grbl.Simulator); !ok {
		t.Errorf("Connect() = %T, want *grbl.Simulator", port)
	}
}

func TestRunnerConnectInvalidPort(t *testing.T) {
	cfg := RunnerConfig{Options: DefaultOptions()}
	cfg.Serial.Port = ""

	if _, err := NewRunner(cfg, nil).Connect(); err == nil {
		t.Error("Connect() with an empty port should fail")
	}
}

// quittingScreen presses the quit key as soon as it is initialised.
type quittingScreen struct {
	tcell.SimulationScreen
}

func (s quittingScreen) Init() error {
	if err := s.SimulationScreen.Init(); err != nil {
		return err
	}
	s.SetSize(ui.Cols, ui.Rows)
	s.InjectKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)
	return nil
}

func TestRunnerRunPrintsSummary(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(RunnerConfig{Options: DefaultOptions(), Simulate: true, Out: &out}, nil)
	r.newScreen = func() (tcell.Screen, error) {
		return quittingScreen{tcell.NewSimulationScreen("")}, nil
	}

	port, err := r.Connect()
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := r.Run(port); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(out.String(), "Session Summary") {
		t.Errorf("summary missing from output:\n%s", out.String())
	}
}

// unpluggedPort fails its first session like a removed USB adapter and
// stays quiet after each reconnect.
type unpluggedPort struct {
	mu         sync.Mutex
	reconnects int
	reopenErr  error
}

func (p *unpluggedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	broken := p.reconnects == 0
	p.mu.Unlock()
	if broken {
		return 0, errors.New("device unplugged")
	}
	time.Sleep(time.Millisecond)
	return 0, nil
}

func (p *unpluggedPort) Write(buf []byte) (int, error) { return len(buf), nil }
func (p *unpluggedPort) Close() error                  { return nil }

func (p *unpluggedPort) Reconnect() error {
	if p.reopenErr != nil {
		return p.reopenErr
	}
	p.mu.Lock()
	p.reconnects++
	p.mu.Unlock()
	return nil
}

func (p *unpluggedPort) GetLastError() error { return p.reopenErr }

// screenSequence hands out a plain screen for the first session and a
// quitting one afterwards.
func screenSequence() func() (tcell.Screen, error) {
	calls := 0
	return func() (tcell.Screen, error) {
		calls++
		if calls == 1 {
			return tcell.NewSimulationScreen(""), nil
		}
		return quittingScreen{tcell.NewSimulationScreen("")}, nil
	}
}

func TestRunnerReconnectsAfterLinkLoss(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(RunnerConfig{Options: DefaultOptions(), Out: &out}, nil)
	r.newScreen = screenSequence()
	port := &unpluggedPort{}

	if err := r.Run(port); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if port.reconnects != 1 {
		t.Errorf("reconnects = %d, want 1", port.reconnects)
	}
	for _, want := range []string{"reconnecting", "Reconnects: 1", "Session Summary"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunnerReconnectFails(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(RunnerConfig{Options: DefaultOptions(), Out: &out}, nil)
	r.newScreen = screenSequence()
	port := &unpluggedPort{reopenErr: errors.New("no such file or directory")}

	err := r.Run(port)
	if err == nil || !strings.Contains(err.Error(), "reconnect failed") {
		t.Fatalf("Run() error = %v, want the reconnect failure", err)
	}
	if !strings.Contains(err.Error(), "device unplugged") {
		t.Errorf("Run() error = %v, want the read error kept", err)
	}
}

func TestRunnerStopPreventsReconnect(t *testing.T) {
	r := NewRunner(RunnerConfig{Options: DefaultOptions(), Out: &bytes.Buffer{}}, nil)
	r.newScreen = screenSequence()
	r.Stop()
	port := &unpluggedPort{}

	// the read error may still be reported, but the link is never reopened
	_ = r.Run(port)
	if port.reconnects != 0 {
		t.Errorf("reconnects = %d after Stop, want 0", port.reconnects)
	}
}

func TestRunnerLastPortError(t *testing.T) {
	r := NewRunner(RunnerConfig{Options: DefaultOptions()}, nil)
	if err := r.LastPortError(); err != nil {
		t.Errorf("LastPortError() before Connect = %v, want nil", err)
	}

	r.cfg.Serial = serial.DefaultConfig()
	r.cfg.Serial.Port = "/dev/ttyNONE999"
	r.cfg.Retry = serial.RetryConfig{MaxRetries: 0, RetryInterval: time.Millisecond, BackoffFactor: 1, MaxInterval: time.Millisecond}
	if _, err := r.Connect(); err == nil {
		t.Skip("a port named /dev/ttyNONE999 exists")
	}
	if r.LastPortError() == nil {
		t.Error("LastPortError() = nil after a failed Connect")
	}
}
