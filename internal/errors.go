package internal

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the upstream answers 200 with no body.
var ErrEmptyResponse = errors.New("upstream returned empty response")

// TransportError covers network failures and non-2xx upstream statuses.
// Status is 0 when the request never produced an HTTP response.
type TransportError struct {
	Status int
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream request failed: status %d (%s)", e.Status, e.URL)
	}
	return fmt.Sprintf("upstream request failed: %v (%s)", e.Err, e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError means the upstream answered successfully but the payload did
// not decode into the expected shape. Kept distinct from TransportError so
// callers can treat schema drift differently from availability problems.
type SchemaError struct {
	Shape string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("upstream response did not match %s: %v", e.Shape, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StoreError wraps a failed query or transaction against the local store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
