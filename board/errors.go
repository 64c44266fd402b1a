package board

import (
	"errors"
	"fmt"

	"github.com/jaganraajan/projects-board/domain"
)

// ValidationError reports operation input rejected before any state change or
// remote call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation referencing a task id absent from the
// expected column. Column is empty when the whole board was searched.
type NotFoundError struct {
	ID     string
	Column domain.Status
}

func (e *NotFoundError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("task %s not found in column %s", e.ID, e.Column)
	}
	return fmt.Sprintf("task %s not found", e.ID)
}

// ErrStaleSession is returned when a remote call completes after the session
// it was issued under has been replaced or cleared. The response is discarded
// and the board is left untouched; it is not recorded as the last error.
var ErrStaleSession = errors.New("session changed while request was in flight")
