package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when entries are enqueued after Close.
	ErrClosed = errors.New("transport closed")

	// ErrBufferFull is returned when the pending buffer is at capacity.
	ErrBufferFull = errors.New("transport buffer full")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid transport config")
)

// SendError describes a failed delivery attempt.
type SendError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *SendError) Error() string {
	msg := "transport " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that retrying cannot fix, such as a 4xx
// answer from the collector.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the transport does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
