package ready

import (
	"errors"
	"fmt"
	"time"

	"github.com/v0xg/pagewait/internal/driver"
)

var (
	// ErrNilFrame is returned before any wait when the caller passes no frame.
	ErrNilFrame = errors.New("ready: nil page or frame")
	// ErrEmptyModalID is returned when a modal helper is called without an id.
	ErrEmptyModalID = errors.New("ready: empty modal id")
	// ErrNoVisibleModal is returned by DismissModal when no modal is open.
	ErrNoVisibleModal = errors.New("ready: no visible modal to dismiss")
	// ErrMultipleVisibleModals is returned by DismissModal when the close
	// control would be ambiguous.
	ErrMultipleVisibleModals = errors.New("ready: more than one visible modal")
)

// TimeoutError reports a bounded wait that expired before its condition held.
type TimeoutError struct {
	Op       string
	Selector string
	Src      string // script src, set by the script tracker
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %s waiting for %s", e.Op, e.Timeout, e.Selector)
	if e.Src != "" {
		msg += fmt.Sprintf(" (loading not completed for script with src=%s)", e.Src)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Is makes every TimeoutError match driver.ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == driver.ErrTimeout }

// InvariantError reports a wait that succeeded without the data it promised.
// It means the synchronization primitive itself is broken.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant broken: %s", e.Op, e.Detail)
}

// wrap classifies err from a driver wait on selector.
func wrap(op, selector, src string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrTimeout) {
		return &TimeoutError{Op: op, Selector: selector, Src: src, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("%s: %s: %w", op, selector, err)
}
