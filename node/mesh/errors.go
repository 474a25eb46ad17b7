package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrRadio matches every error surfaced from the Radio.
	ErrRadio = errors.New("radio error")
	// ErrFailed is returned by every operation once the controller has
	// failed to start.
	ErrFailed = errors.New("mesh controller failed")
	// ErrInvalidState is returned when an operation is called out of order.
	ErrInvalidState = errors.New("invalid mesh controller state")
)

// RadioError wraps a Radio failure with the operation that produced it.
type RadioError struct {
	Op  string
	Err error
}

func (e *RadioError) Error() string {
	return fmt.Sprintf("radio %s: %v", e.Op, e.Err)
}

func (e *RadioError) Unwrap() error { return e.Err }

func (e *RadioError) Is(target error) bool { return target == ErrRadio }

func radioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RadioError{Op: op, Err: err}
}
