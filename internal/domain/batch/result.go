package batch

import (
	"fmt"
	"strings"
)

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of writing one document in a bulk operation.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// WriteError aggregates per-item failures of a bulk write. Successfully
// written documents stay written; the bulk primitive is non-transactional.
type WriteError struct {
	results []Result
}

// NewWriteError creates an aggregate from all item results. Returns nil when
// every item succeeded.
func NewWriteError(results []Result) error {
	for _, r := range results {
		if r.Status() == StatusError {
			return &WriteError{results: results}
		}
	}
	return nil
}

// Results returns every item result, successes included.
func (e *WriteError) Results() []Result { return e.results }

// Failed returns only the failed item results.
func (e *WriteError) Failed() []Result {
	var failed []Result
	for _, r := range e.results {
		if r.Status() == StatusError {
			failed = append(failed, r)
		}
	}
	return failed
}

func (e *WriteError) Error() string {
	failed := e.Failed()
	ids := make([]string, 0, len(failed))
	for _, r := range failed {
		ids = append(ids, r.ID())
	}
	return fmt.Sprintf("bulk write: %d of %d documents failed: %s",
		len(failed), len(e.results), strings.Join(ids, ", "))
}
