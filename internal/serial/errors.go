package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when writing to a channel that was never opened.
	ErrNotOpen = errors.New("serial channel not open")
	// ErrClosed is returned when using a channel after Close.
	ErrClosed = errors.New("serial channel closed")
	// ErrAlreadyOpen is returned by a second Open.
	ErrAlreadyOpen = errors.New("serial channel already open")
)

// ConnectionError reports a failure to open the configured port.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open serial port %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
