// Package serial owns the serial line to the illuminator.
package serial

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	bugst "go.bug.st/serial"
)

// State is the lifecycle state of a Channel.
type State string

const (
	StateNew    State = "new"
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateError  State = "error"
)

// Port is the subset of the driver port used by Channel.
type Port interface {
	io.Writer
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener opens a port with the given mode.
type Opener func(name string, mode *bugst.Mode) (Port, error)

// DriverOpener opens real ports through go.bug.st/serial.
func DriverOpener(name string, mode *bugst.Mode) (Port, error) {
	return bugst.Open(name, mode)
}

// Options configures a Channel.
type Options struct {
	Config Config
	Opener Opener
	Logger *slog.Logger

	// OnStateChange is called after every lifecycle transition.
	OnStateChange func(cfg Config, state State, err error)
}

// Channel is a single-writer serial connection. It is opened once and
// closed once; writes outside that window fail.
type Channel struct {
	cfg    Config
	opener Opener
	logger *slog.Logger
	notify func(cfg Config, state State, err error)

	mu    sync.Mutex
	port  Port
	state State
}

// New creates a channel in the new state. Nothing is opened yet.
func New(opts Options) *Channel {
	opener := opts.Opener
	if opener == nil {
		opener = DriverOpener
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    opts.Config,
		opener: opener,
		logger: logger,
		notify: opts.OnStateChange,
		state:  StateNew,
	}
}

// Open connects to the configured port. Failures are returned as
// *ConnectionError and are not retried.
func (c *Channel) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateOpen:
		return ErrAlreadyOpen
	case StateClosed:
		return ErrClosed
	}

	mode, err := c.cfg.Mode()
	if err != nil {
		return c.failOpen(err)
	}

	port, err := c.opener(c.cfg.Port, mode)
	if err != nil {
		return c.failOpen(err)
	}

	if err := port.SetReadTimeout(c.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return c.failOpen(fmt.Errorf("set read timeout: %w", err))
	}

	c.port = port
	c.state = StateOpen
	c.logger.Info("Port open", "port", c.cfg.Port, "settings", c.cfg.String())
	c.emit(StateOpen, nil)
	return nil
}

// failOpen records an open failure (must hold lock). The channel stays
// in the new state since nothing was acquired.
func (c *Channel) failOpen(err error) error {
	connErr := &ConnectionError{Port: c.cfg.Port, Err: err}
	c.logger.Error("Failed to open port", "port", c.cfg.Port, "error", err)
	c.emit(StateError, connErr)
	return connErr
}

// Write sends p to the device synchronously. Concurrent callers are
// serialized so command bytes never interleave on the wire.
func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateNew:
		return 0, ErrNotOpen
	case StateClosed:
		return 0, ErrClosed
	}

	n, err := c.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", c.cfg.Port, err)
	}
	if n != len(p) {
		return n, fmt.Errorf("write %s: %w", c.cfg.Port, io.ErrShortWrite)
	}
	c.logger.Debug("Wrote bytes", "port", c.cfg.Port, "data", fmt.Sprintf("%q", p))
	return n, nil
}

// Close releases the port. Only the first call does anything.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}

	var err error
	if c.port != nil {
		err = c.port.Close()
		c.port = nil
	}
	c.state = StateClosed
	if err != nil {
		c.logger.Warn("Error closing port", "port", c.cfg.Port, "error", err)
	} else {
		c.logger.Info("Port closed", "port", c.cfg.Port)
	}
	c.emit(StateClosed, err)
	return err
}

// IsOpen reports whether writes are currently accepted.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

// State returns the current lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns the line settings the channel was created with.
func (c *Channel) Config() Config {
	return c.cfg
}

func (c *Channel) emit(state State, err error) {
	if c.notify != nil {
		c.notify(c.cfg, state, err)
	}
}

// ListPorts enumerates serial ports on the host.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if ports == nil {
		ports = []string{}
	}
	return ports, nil
}
