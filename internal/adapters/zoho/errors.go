package zoho

import (
	"errors"
	"fmt"
)

// ErrUpstream is the kind of every *UpstreamError.
var ErrUpstream = errors.New("upstream error")

// ErrResponseTooLarge is wrapped by the *UpstreamError of a call whose
// response body exceeds the client's limit.
var ErrResponseTooLarge = errors.New("response body too large")

// bodyExcerptLimit caps how much of a vendor response is kept for diagnostics.
const bodyExcerptLimit = 512

// UpstreamError reports a vendor call that failed or was rejected. It is
// transient from the caller's point of view.
type UpstreamError struct {
	Op         string // refresh_token, download_template, upload, attach
	StatusCode int    // 0 when no response was received
	Body       string // excerpt of the response body
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": failed"
	}
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

func excerpt(b []byte) string {
	if len(b) > bodyExcerptLimit {
		return string(b[:bodyExcerptLimit]) + "..."
	}
	return string(b)
}
