package grbl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jog-pendant/pkg/history"
)

// DefaultStatusInterval is how often the controller is asked for a status
// report.
const DefaultStatusInterval = 200 * time.Millisecond

// Recorder keeps a log of controller traffic.
type Recorder interface {
	Write(data []byte, direction history.Direction) error
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	StatusInterval time.Duration
	Recorder       Recorder
	Logger         *zap.Logger
}

// Controller exchanges lines with a controller over a byte stream. Writes may
// come from any goroutine; reading happens in Run.
type Controller struct {
	port    io.ReadWriteCloser
	record  Recorder
	logger  *zap.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// NewController wraps port.
func NewController(port io.ReadWriteCloser, opts ControllerOptions) *Controller {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		port:    port,
		record:  opts.Recorder,
		logger:  opts.Logger.Named("grbl"),
		limiter: rate.NewLimiter(rate.Every(opts.StatusInterval), 1),
	}
}

// ErrClosed is returned when writing to a closed controller.
var ErrClosed = errors.New("controller connection closed")

// SendLine sends a command line. The line terminator is added.
func (c *Controller) SendLine(line string) error {
	c.recordLine([]byte(line), history.DirectionOutput)
	if err := c.write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	c.logger.Debug("sent", zap.String("line", line))
	return nil
}

// SendRealtime sends a single realtime command byte.
func (c *Controller) SendRealtime(b byte) error {
	// status polls would drown the log
	if b != StatusQuery {
		c.recordLine([]byte(fmt.Sprintf("<0x%02X>", b)), history.DirectionOutput)
	}
	if err := c.write([]byte{b}); err != nil {
		return fmt.Errorf("send realtime 0x%02x: %w", b, err)
	}
	return nil
}

func (c *Controller) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	_, err := c.port.Write(data)
	return err
}

// Run reads lines until ctx is cancelled or the stream ends, handing each
// non-empty line to onLine. It returns nil at end of stream.
func (c *Controller) Run(ctx context.Context, onLine func(line string)) error {
	scanner := bufio.NewScanner(&pollingReader{ctx: ctx, r: c.port})
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "<") {
			c.recordLine([]byte(line), history.DirectionInput)
		}
		onLine(line)
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil || c.isClosed() {
			return nil
		}
		return fmt.Errorf("read controller: %w", err)
	}
	return nil
}

// PollStatus requests a status report at the configured interval until ctx
// is done.
func (c *Controller) PollStatus(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := c.SendRealtime(StatusQuery); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Close closes the underlying stream. Further sends fail with ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.port.Close()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) recordLine(data []byte, dir history.Direction) {
	if c.record == nil {
		return
	}
	if err := c.record.Write(data, dir); err != nil {
		c.logger.Warn("history write failed", zap.Error(err))
	}
}

// pollingReader turns the (0, nil) reads of a serial port read timeout into
// a blocking read that gives up when ctx is done.
type pollingReader struct {
	ctx context.Context
	r   io.Reader
}

func (p *pollingReader) Read(buf []byte) (int, error) {
	for {
		n, err := p.r.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
		if err := p.ctx.Err(); err != nil {
			return 0, err
		}
	}
}
