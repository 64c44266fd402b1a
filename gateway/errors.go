package gateway

import "fmt"

// NetworkError reports a failed remote call: either a non-success HTTP status
// or a transport failure (timeout, refused connection), in which case
// StatusCode is zero and Err carries the transport error.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s: unexpected status %d", e.Op, e.StatusCode)
}

func (e *NetworkError) Unwrap() error { return e.Err }
