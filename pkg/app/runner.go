package app

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"jog-pendant/pkg/grbl"
	"jog-pendant/pkg/serial"
)

// RunnerConfig describes how to reach the controller and what to run on it.
type RunnerConfig struct {
	Options
	Serial serial.SerialConfig
	Retry  serial.RetryConfig
	// Simulate replaces the serial port with the built-in controller
	// simulator.
	Simulate bool
	// Out receives the session summary. Defaults to stdout.
	Out io.Writer
}

// reconnector is a controller stream that can be reopened after it failed.
// *serial.ResilientSerialPort satisfies it.
type reconnector interface {
	Reconnect() error
	GetLastError() error
}

// Runner provides a high-level interface to run the pendant
type Runner struct {
	cfg       RunnerConfig
	logger    *zap.Logger
	port      *serial.ResilientSerialPort
	newScreen func() (tcell.Screen, error)

	mu         sync.Mutex
	app        *Application
	quitting   bool
	started    time.Time
	reconnects int
}

// NewRunner creates a new application runner
func NewRunner(cfg RunnerConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &Runner{
		cfg:       cfg,
		logger:    logger,
		newScreen: tcell.NewScreen,
	}
}

// Connect opens the controller stream, retrying a busy or missing port with
// backoff.
func (r *Runner) Connect() (io.ReadWriteCloser, error) {
	if r.cfg.Simulate {
		r.logger.Info("using simulated controller")
		return grbl.NewSimulator(len(r.cfg.Settings.Axes)), nil
	}

	r.port = serial.NewResilientSerialPort(r.cfg.Retry)
	r.port.SetLogger(r.logger)
	if err := r.port.OpenWithRetry(r.cfg.Serial); err != nil {
		return nil, err
	}
	return r.port, nil
}

// LastPortError returns the last error of the serial port opened by
// Connect, or nil.
func (r *Runner) LastPortError() error {
	if r.port == nil {
		return nil
	}
	return r.port.GetLastError()
}

// Run runs the pendant on port until the operator quits or a signal
// arrives, then prints a session summary. When the controller link drops
// and port can be reopened, the pendant restarts on the reopened port with
// the same traffic log.
func (r *Runner) Run(port io.ReadWriteCloser) error {
	r.started = time.Now()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigChan:
			r.logger.Info("signal received", zap.Stringer("signal", sig))
			r.Stop()
		case <-done:
		}
	}()

	var err error
	for {
		err = r.runOnce(port)
		if !r.shouldReconnect() {
			break
		}

		rc, ok := port.(reconnector)
		if !ok {
			break
		}
		r.logger.Warn("controller link lost, reconnecting", zap.Error(err))
		fmt.Fprintf(r.cfg.Out, "Controller link lost, reconnecting...\n")
		if rerr := rc.Reconnect(); rerr != nil {
			r.logger.Error("reconnect failed", zap.Error(rc.GetLastError()))
			err = multierr.Append(err, fmt.Errorf("reconnect failed: %w", rerr))
			break
		}
		r.reconnects++
		r.cfg.Traffic = r.currentApp().Traffic()
	}

	r.printSessionSummary()
	return err
}

// runOnce runs one pendant session on port.
func (r *Runner) runOnce(port io.ReadWriteCloser) error {
	screen, err := r.newScreen()
	if err != nil {
		port.Close()
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		port.Close()
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	app, err := New(screen, port, r.cfg.Options, r.logger)
	if err != nil {
		screen.Fini()
		port.Close()
		return fmt.Errorf("failed to create application: %w", err)
	}

	r.mu.Lock()
	r.app = app
	quitting := r.quitting
	r.mu.Unlock()
	if quitting {
		app.Quit()
	}

	return app.Run()
}

func (r *Runner) shouldReconnect() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.quitting && r.app != nil && r.app.LinkLost()
}

func (r *Runner) currentApp() *Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.app
}

// Stop asks a running pendant to quit and not to reconnect.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.quitting = true
	app := r.app
	r.mu.Unlock()

	if app != nil {
		app.Quit()
	}
}

// printSessionSummary prints a summary of the session
func (r *Runner) printSessionSummary() {
	app := r.currentApp()
	if app == nil {
		return
	}

	stats := app.Traffic().GetStats()
	uptime := time.Since(r.started)

	fmt.Fprintf(r.cfg.Out, "\n=== Session Summary ===\n")
	fmt.Fprintf(r.cfg.Out, "Duration: %v\n", uptime.Round(time.Millisecond))
	fmt.Fprintf(r.cfg.Out, "Lines Sent: %d (%d bytes)\n", stats.OutputEntries, stats.OutputBytes)
	fmt.Fprintf(r.cfg.Out, "Lines Received: %d (%d bytes)\n", stats.InputEntries, stats.InputBytes)
	if r.reconnects > 0 {
		fmt.Fprintf(r.cfg.Out, "Reconnects: %d\n", r.reconnects)
	}
	if r.cfg.HistoryFile != "" {
		fmt.Fprintf(r.cfg.Out, "History: %s\n", r.cfg.HistoryFile)
	}
	fmt.Fprintf(r.cfg.Out, "=======================\n")
}
