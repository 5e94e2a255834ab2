package sheets

import (
	"errors"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

// StatusClassifier classifies Google API errors for the retry executor.
//
// HTTP errors with a transient status are retryable; any non-HTTP failure
// (connection reset, DNS, timeout) is assumed transient too, matching how
// the Sheets client surfaces network problems outside [googleapi.Error].
type StatusClassifier struct{}

// retryable transient/rate-limit statuses
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsRetryable reports whether the error should be retried.
func (StatusClassifier) IsRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatuses[gerr.Code]
	}
	return true
}

// RetryAfter extracts a Retry-After hint from a Google API error, when present.
func (StatusClassifier) RetryAfter(err error) (time.Duration, bool) {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0, false
	}

	raw := gerr.Header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}

	seconds, perr := strconv.ParseFloat(raw, 64)
	if perr != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
