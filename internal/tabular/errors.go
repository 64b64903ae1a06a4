package tabular

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError covers every failure mode of the remote table API: network
// faults, auth rejections and rate limiting. The client reports the failure
// without interpreting it; callers decide whether to retry. Status is the
// HTTP status code, or 0 when the request never completed (including
// timeouts, where the write may or may not have been applied upstream).
type TransportError struct {
	Op     string
	Table  string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("table api: %s %s: status %d: %v", e.Op, e.Table, e.Status, e.Err)
	}
	return fmt.Sprintf("table api: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream rejected the call for quota
// reasons.
func (e *TransportError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// IsTransport reports whether err originated in the table transport and, if
// so, returns it.
func IsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
