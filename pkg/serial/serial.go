// Package serial provides the serial link to the motion controller
package serial

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// SerialConfig defines the configuration for serial port communication
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

// Validate checks if the serial configuration is valid
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	validBaudRates := []int{9600, 19200, 38400, 57600, 115200, 230400, 250000, 460800, 921600}
	validBaud := false
	for _, rate := range validBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", c.DataBits)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	validParity := []string{"none", "odd", "even", "mark", "space"}
	validParityFound := false
	for _, p := range validParity {
		if c.Parity == p {
			validParityFound = true
			break
		}
	}
	if !validParityFound {
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

// DefaultConfig returns the usual settings of a USB attached controller. The
// short read timeout lets the line reader notice shutdown promptly.
func DefaultConfig() SerialConfig {
	return SerialConfig{
		Port:     "/dev/ttyUSB0",
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  100 * time.Millisecond,
	}
}

// SerialPort interface defines the contract for serial port operations
type SerialPort interface {
	Open(config SerialConfig) error
	Close() error
	Read(buffer []byte) (int, error)
	Write(data []byte) (int, error)
	IsOpen() bool
	GetConfig() SerialConfig
	SetReadTimeout(timeout time.Duration) error
}

// CrossPlatformSerialPort implements SerialPort using go.bug.st/serial. Read
// and Write may run concurrently.
type CrossPlatformSerialPort struct {
	mu     sync.RWMutex
	port   serial.Port
	config SerialConfig
	isOpen bool
}

// NewCrossPlatformSerialPort creates a new cross-platform serial port instance
func NewCrossPlatformSerialPort() *CrossPlatformSerialPort {
	return &CrossPlatformSerialPort{}
}

// Open opens the serial port with the given configuration
func (sp *CrossPlatformSerialPort) Open(config SerialConfig) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.isOpen {
		return fmt.Errorf("serial port is already open")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return NewSerialError("open", config.Port, err)
	}

	if config.Timeout > 0 {
		if err := port.SetReadTimeout(config.Timeout); err != nil {
			port.Close()
			return NewSerialError("set read timeout", config.Port, err)
		}
	}

	sp.port = port
	sp.config = config
	sp.isOpen = true

	return nil
}

// Close closes the serial port
func (sp *CrossPlatformSerialPort) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if !sp.isOpen {
		return fmt.Errorf("serial port is not open")
	}

	err := sp.port.Close()
	sp.port = nil
	sp.isOpen = false

	if err != nil {
		return NewSerialError("close", sp.config.Port, err)
	}

	return nil
}

// Read reads data from the serial port. It returns 0, nil when the read
// timeout expires without data.
func (sp *CrossPlatformSerialPort) Read(buffer []byte) (int, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Read(buffer)
	if err != nil {
		return n, NewSerialError("read", sp.config.Port, err)
	}

	return n, nil
}

// Write writes data to the serial port
func (sp *CrossPlatformSerialPort) Write(data []byte) (int, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Write(data)
	if err != nil {
		return n, NewSerialError("write", sp.config.Port, err)
	}

	return n, nil
}

// IsOpen returns true if the serial port is open
func (sp *CrossPlatformSerialPort) IsOpen() bool {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.isOpen
}

// GetConfig returns the current serial port configuration
func (sp *CrossPlatformSerialPort) GetConfig() SerialConfig {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.config
}

// SetReadTimeout sets the read timeout for the serial port
func (sp *CrossPlatformSerialPort) SetReadTimeout(timeout time.Duration) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if !sp.isOpen {
		return fmt.Errorf("serial port is not open")
	}

	if err := sp.port.SetReadTimeout(timeout); err != nil {
		return NewSerialError("set read timeout", sp.config.Port, err)
	}

	sp.config.Timeout = timeout
	return nil
}

// convertStopBits converts our stop bits format to go.bug.st/serial format
func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 1:
		return serial.OneStopBit
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// convertParity converts our parity format to go.bug.st/serial format
func convertParity(parity string) serial.Parity {
	switch parity {
	case "none":
		return serial.NoParity
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// GetDetailedPortsList returns detailed information about available serial ports
func GetDetailedPortsList() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get ports list: %w", err)
	}

	portInfos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		portInfos = append(portInfos, PortInfo{
			Name:         p.Name,
			Description:  p.Product,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
		})
	}

	return portInfos, nil
}

// ListPorts returns a list of available serial ports on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get available ports: %w", err)
	}
	return ports, nil
}

// IsPortAvailable checks if a specific port is available
func IsPortAvailable(portName string) bool {
	ports, err := serial.GetPortsList()
	if err != nil {
		return false
	}

	for _, port := range ports {
		if strings.EqualFold(port, portName) {
			return true
		}
	}

	return false
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying error
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// ConnectionState represents the state of a serial connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the string representation of ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// RetryConfig defines configuration for connection retry logic
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		RetryInterval: time.Second,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second * 10,
	}
}

// Validate checks if the retry configuration is valid
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// backOff returns the exponential schedule for r. Attempts are counted by
// the caller so the elapsed time limit is off.
func (r RetryConfig) backOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     r.RetryInterval,
		RandomizationFactor: 0.,
		Multiplier:          r.BackoffFactor,
		MaxInterval:         r.MaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
}

// ResilientSerialPort extends CrossPlatformSerialPort with retry and recovery capabilities
type ResilientSerialPort struct {
	*CrossPlatformSerialPort
	retryConfig RetryConfig
	lastError   error
	state       ConnectionState
	logger      *zap.Logger
	// config is the last configuration passed to OpenWithRetry
	config SerialConfig
	// open is the single attempt retried by OpenWithRetry
	open func(SerialConfig) error
}

// NewResilientSerialPort creates a new resilient serial port with retry capabilities
func NewResilientSerialPort(retryConfig RetryConfig) *ResilientSerialPort {
	rsp := &ResilientSerialPort{
		CrossPlatformSerialPort: NewCrossPlatformSerialPort(),
		retryConfig:             retryConfig,
		state:                   StateDisconnected,
		logger:                  zap.NewNop(),
	}
	rsp.open = rsp.CrossPlatformSerialPort.Open
	return rsp
}

// SetLogger sets the logger that reports connection attempts.
func (rsp *ResilientSerialPort) SetLogger(logger *zap.Logger) {
	rsp.logger = logger.Named("serial")
}

// OpenWithRetry opens the serial port, retrying recoverable failures with
// exponential backoff.
func (rsp *ResilientSerialPort) OpenWithRetry(config SerialConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := rsp.retryConfig.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	rsp.state = StateConnecting
	rsp.config = config

	attempts := 0
	op := func() error {
		attempts++
		err := rsp.open(config)
		if err == nil {
			return nil
		}
		rsp.logger.Info("open attempt failed",
			zap.String("port", config.Port),
			zap.Int("attempt", attempts),
			zap.Error(err))

		if !isRecoverableError(err) || attempts > rsp.retryConfig.MaxRetries {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, rsp.retryConfig.backOff())
	if err == nil {
		rsp.state = StateConnected
		rsp.lastError = nil
		rsp.logger.Info("port open", zap.String("port", config.Port), zap.Int("attempts", attempts))
		return nil
	}

	rsp.state = StateError
	rsp.lastError = err
	return fmt.Errorf("failed to open serial port after %d attempts: %w", attempts, err)
}

// Close closes the serial port and updates state
func (rsp *ResilientSerialPort) Close() error {
	err := rsp.CrossPlatformSerialPort.Close()
	if err != nil {
		rsp.state = StateError
		rsp.lastError = err
		return err
	}

	rsp.state = StateDisconnected
	rsp.lastError = nil
	return nil
}

// GetState returns the current connection state
func (rsp *ResilientSerialPort) GetState() ConnectionState {
	return rsp.state
}

// GetLastError returns the last error that occurred
func (rsp *ResilientSerialPort) GetLastError() error {
	return rsp.lastError
}

// Reconnect attempts to reconnect using the last known configuration
func (rsp *ResilientSerialPort) Reconnect() error {
	config := rsp.config
	if config.Port == "" {
		return fmt.Errorf("no previous configuration available for reconnection")
	}

	// a vanished device may fail to close; the reopen decides
	if rsp.IsOpen() {
		if err := rsp.Close(); err != nil {
			rsp.logger.Warn("close before reconnect failed", zap.Error(err))
		}
	}

	return rsp.OpenWithRetry(config)
}

// isRecoverableError determines if an error is recoverable and retry should be attempted
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy, serial.PortNotFound:
			return true
		case serial.PermissionDenied, serial.InvalidSerialPort, serial.InvalidSpeed,
			serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
			return false
		}
	}

	errorStr := strings.ToLower(err.Error())

	recoverablePatterns := []string{
		"device busy",
		"resource temporarily unavailable",
		"timeout",
		"connection refused",
		"no such device", // unplugged, may come back
		"no such file or directory",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}

	return false
}
