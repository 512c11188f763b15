// Package app runs the pendant: it owns the screen, the controller link and
// the scene stack, and feeds them from a single event loop.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"jog-pendant/pkg/config"
	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/history"
	"jog-pendant/pkg/input"
	"jog-pendant/pkg/jog"
	"jog-pendant/pkg/menu"
	"jog-pendant/pkg/scene"
	"jog-pendant/pkg/ui"
)

// stopTimeout bounds the wait for the reader goroutines on shutdown.
const stopTimeout = 2 * time.Second

// Options contains application configuration
type Options struct {
	Settings config.Settings
	// HistorySize is the number of traffic lines kept in memory.
	HistorySize int
	// HistoryFile receives the traffic log on Stop when not empty.
	HistoryFile   string
	HistoryFormat history.FileFormat
	// Traffic continues an existing log instead of starting a new one.
	Traffic *history.TrafficLog
}

// DefaultOptions returns default application options
func DefaultOptions() Options {
	return Options{
		Settings:      config.DefaultSettings(),
		HistorySize:   history.DefaultMaxEntries,
		HistoryFormat: history.FormatTimestamped,
	}
}

// Interrupt payloads posted to the event loop by background goroutines.
type (
	controllerLine string
	controllerDone struct{ err error }
	quitRequest    struct{}
)

// Application is the pendant. Everything touching scenes runs on the
// goroutine that calls Run.
type Application struct {
	opts    Options
	logger  *zap.Logger
	screen  tcell.Screen
	canvas  *ui.Canvas
	ctrl    *grbl.Controller
	machine *grbl.Machine
	manager *scene.Manager
	input   *input.Translator
	traffic *history.TrafficLog

	menu  *menu.Menu
	jog   *jog.Scene
	files *scene.FileScene

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	running  bool
	started  time.Time
	linkLost bool

	// readErr is the error that ended the controller reader, if any. It has
	// its own lock because Stop waits for the reader while holding mu.
	errMu   sync.Mutex
	readErr error
}

// New builds the pendant on an initialised screen and an open controller
// stream. The application owns port from here on.
func New(screen tcell.Screen, port io.ReadWriteCloser, opts Options, logger *zap.Logger) (*Application, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := opts.Settings
	app := &Application{
		opts:    opts,
		logger:  logger,
		screen:  screen,
		machine: grbl.NewMachine(s.Inches),
		traffic: opts.Traffic,
	}
	if app.traffic == nil {
		app.traffic = history.NewTrafficLog(opts.HistorySize)
	}

	app.ctrl = grbl.NewController(port, grbl.ControllerOptions{
		StatusInterval: s.StatusInterval,
		Recorder:       app.traffic,
		Logger:         logger,
	})
	app.canvas = ui.NewCanvas(screen, len(s.Axes))
	app.manager = scene.NewManager(app.canvas, logger.Named("scene"))

	app.menu = menu.NewMainMenu(app.manager, app.ctrl, logger)
	app.menu.SetStatus(app.machine.Summary)
	app.jog = jog.NewScene(app.manager, app.ctrl, app.machine, jog.Config{
		Labels: s.Axes,
		Tuning: s.Tuning,
	}, logger)
	app.files = scene.NewFileScene(app.manager, app.machine, app.ctrl, logger)

	app.manager.Register(app.menu)
	app.manager.Register(app.jog)
	app.manager.Register(app.files)

	app.input = input.NewTranslator(screen, input.NewKeymap(app.jog.Layout()), input.Options{
		HoldDelay:  s.HoldDelay,
		KeyRelease: s.KeyRelease,
		Logger:     logger,
	})

	return app, nil
}

// Start prepares the screen, shows the main menu and starts reading from
// the controller.
func (app *Application) Start() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.running {
		return fmt.Errorf("application is already running")
	}

	app.screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))
	app.screen.EnableMouse()
	app.screen.Clear()

	if err := app.manager.Start(scene.IDMenu); err != nil {
		return fmt.Errorf("failed to show menu: %w", err)
	}

	app.ctx, app.cancel = context.WithCancel(context.Background())
	app.running = true
	app.started = time.Now()

	app.wg.Add(2)
	go app.readController()
	go app.pollStatus()

	app.logger.Info("pendant started",
		zap.String("axes", app.opts.Settings.Axes),
		zap.Bool("inches", app.opts.Settings.Inches))
	return nil
}

// Run starts the application and blocks until the operator quits, Quit is
// called or the controller stream ends.
func (app *Application) Run() error {
	if err := app.Start(); err != nil {
		return err
	}
	for {
		ev := app.screen.PollEvent()
		if ev == nil || app.handleEvent(ev) {
			break
		}
	}
	return multierr.Append(app.ReadError(), app.Stop())
}

// Quit asks the event loop to finish. It may be called from any goroutine.
func (app *Application) Quit() {
	app.post(quitRequest{})
}

// Stop stops the goroutines, leaves every scene, releases the screen and
// saves the traffic log.
func (app *Application) Stop() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if !app.running {
		return nil
	}
	app.running = false

	// leaving the jog scene sends its cancel before the link goes down
	app.manager.Close()
	app.input.Stop()
	app.cancel()

	var err error
	err = multierr.Append(err, app.ctrl.Close())

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		app.logger.Warn("controller goroutines did not stop in time")
	}

	app.screen.Fini()

	if app.opts.HistoryFile != "" {
		if serr := app.traffic.SaveToFile(app.opts.HistoryFile, app.opts.HistoryFormat); serr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to save history: %w", serr))
		} else {
			app.logger.Info("history saved", zap.String("file", app.opts.HistoryFile))
		}
	}

	app.logger.Info("pendant stopped", zap.Duration("uptime", time.Since(app.started)))
	return err
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.running
}

// ReadError returns the error that ended the controller stream, if any.
func (app *Application) ReadError() error {
	app.errMu.Lock()
	defer app.errMu.Unlock()
	return app.readErr
}

// Traffic returns the controller traffic log.
func (app *Application) Traffic() *history.TrafficLog {
	return app.traffic
}

// LinkLost reports whether Run ended because the controller stream failed
// rather than on request.
func (app *Application) LinkLost() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.linkLost
}

// handleEvent processes one screen event and reports whether the loop
// should end.
func (app *Application) handleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventResize:
		app.screen.Sync()
		app.manager.RequestRedraw()
		return false
	case *tcell.EventInterrupt:
		switch data := e.Data().(type) {
		case controllerLine:
			app.applyLine(string(data))
			return false
		case controllerDone:
			if data.err != nil {
				app.logger.Error("controller stream failed", zap.Error(data.err))
				app.mu.Lock()
				app.linkLost = true
				app.mu.Unlock()
			} else {
				app.logger.Info("controller stream closed")
			}
			return true
		case quitRequest:
			return true
		}
	}

	events, cmd := app.input.Translate(ev)
	switch cmd {
	case input.CommandQuit:
		return true
	case input.CommandKeys:
		app.manager.ShowOverlay(app.input.Keymap().Help())
	case input.CommandTraffic:
		app.manager.ShowOverlay(app.trafficLines())
	}
	for _, e := range events {
		app.manager.Dispatch(e)
	}
	return false
}

// applyLine folds a controller line into the machine state and tells the
// active scene what changed.
func (app *Application) applyLine(line string) {
	for _, change := range app.machine.Apply(line) {
		app.manager.Dispatch(scene.MachineChanged{Change: change})
	}
}

// trafficLines renders the newest controller traffic as an overlay, sent
// lines marked ">" and received lines "<".
func (app *Application) trafficLines() []string {
	entries := app.traffic.Tail(ui.MaxLines)
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("Traffic %d/%d",
		app.traffic.GetEntryCount(), app.traffic.GetMaxEntries()))
	for _, e := range entries {
		dir := "<"
		if e.Direction == history.DirectionOutput {
			dir = ">"
		}
		lines = append(lines, dir+" "+e.Line)
	}
	return lines
}

func (app *Application) readController() {
	defer app.wg.Done()

	err := app.ctrl.Run(app.ctx, func(line string) {
		app.post(controllerLine(line))
	})

	app.errMu.Lock()
	app.readErr = err
	app.errMu.Unlock()

	if app.ctx.Err() == nil {
		app.post(controllerDone{err: err})
	}
}

func (app *Application) pollStatus() {
	defer app.wg.Done()

	if err := app.ctrl.PollStatus(app.ctx); err != nil {
		app.logger.Warn("status polling stopped", zap.Error(err))
	}
}

func (app *Application) post(data interface{}) {
	if err := app.screen.PostEvent(tcell.NewEventInterrupt(data)); err != nil {
		app.logger.Debug("event dropped", zap.Error(err))
	}
}
