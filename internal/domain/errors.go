package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// FetchFailedError is a non-2xx photo provider response outside the
// 401/403 mock-fallback path.
type FetchFailedError struct {
	Status int
}

func (e FetchFailedError) Error() string {
	if e.Status == 0 {
		return "fetch failed"
	}
	return fmt.Sprintf("fetch failed: status %d", e.Status)
}

func (e FetchFailedError) Is(target error) bool {
	_, ok := target.(FetchFailedError)
	if ok {
		return true
	}
	_, ok = target.(*FetchFailedError)
	return ok
}

var ErrFetchFailed = FetchFailedError{}

// SyncUnavailableError means the shared log transport is missing or
// unconfigured. Interaction features degrade, the app keeps running.
type SyncUnavailableError struct {
	Reason string
}

func (e SyncUnavailableError) Error() string {
	if e.Reason == "" {
		return "sync unavailable"
	}
	return fmt.Sprintf("sync unavailable: %s", e.Reason)
}

func (e SyncUnavailableError) Is(target error) bool {
	_, ok := target.(SyncUnavailableError)
	if ok {
		return true
	}
	_, ok = target.(*SyncUnavailableError)
	return ok
}

var ErrSyncUnavailable = SyncUnavailableError{}
