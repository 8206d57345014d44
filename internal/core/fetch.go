package core

import (
	"context"
	"errors"
)

// FetchStatus tags the outcome of a source fetch so callers branch explicitly
// instead of treating every failure alike.
type FetchStatus string

const (
	FetchOK        FetchStatus = "ok"
	FetchEmpty     FetchStatus = "empty"
	FetchTimedOut  FetchStatus = "timed_out"
	FetchForbidden FetchStatus = "forbidden"
	FetchFailed    FetchStatus = "failed"
)

var (
	// ErrTimeout marks a fetch that exceeded its deadline.
	ErrTimeout = errors.New("upstream timed out")
	// ErrForbidden marks a fetch rejected by the upstream (401/403).
	ErrForbidden = errors.New("upstream refused access")
	// ErrBadShape marks a body that decoded but is not the expected document.
	ErrBadShape = errors.New("unexpected upstream document shape")
)

// FetchResult is the tagged result of one fetch. Items is empty for every
// status other than FetchOK.
type FetchResult struct {
	Status FetchStatus
	Items  []Item
	Err    error
}

func Fetched(items []Item) FetchResult {
	if len(items) == 0 {
		return FetchResult{Status: FetchEmpty}
	}
	return FetchResult{Status: FetchOK, Items: items}
}

func FetchError(err error) FetchResult {
	if err == nil {
		return FetchResult{Status: FetchEmpty}
	}
	return FetchResult{Status: StatusFromError(err), Err: err}
}

// OK reports whether the result carries items worth processing.
func (r FetchResult) OK() bool {
	return r.Status == FetchOK && len(r.Items) > 0
}

// StatusFromError classifies a fetch error into a tagged status.
func StatusFromError(err error) FetchStatus {
	switch {
	case err == nil:
		return FetchOK
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FetchTimedOut
	case errors.Is(err, ErrForbidden):
		return FetchForbidden
	case errors.Is(err, ErrBadShape):
		return FetchEmpty
	default:
		return FetchFailed
	}
}
