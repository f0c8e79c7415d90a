package domain

import "fmt"

// OutOfRangeError indicates a rewind or lookup targeted a step index
// outside the recorded range.
type OutOfRangeError struct {
	Index int
	Steps int
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	if e.Steps == 0 {
		return fmt.Sprintf("step %d out of range: timeline has no steps", e.Index)
	}
	return fmt.Sprintf("step %d out of range: valid steps are 0-%d", e.Index, e.Steps-1)
}

// InvalidBranchPointError indicates a branch was requested from an index
// that does not exist in the parent timeline.
type InvalidBranchPointError struct {
	Index int
	Steps int
}

// Error implements the error interface.
func (e *InvalidBranchPointError) Error() string {
	if e.Steps == 0 {
		return fmt.Sprintf("cannot branch from step %d: timeline has no steps", e.Index)
	}
	return fmt.Sprintf("cannot branch from step %d: valid steps are 0-%d", e.Index, e.Steps-1)
}

// NotFoundError indicates that no timeline matched the requested
// identifier or name.
type NotFoundError struct {
	Ref string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("timeline not found: %q", e.Ref)
}

// PersistenceError indicates the persistence collaborator failed during
// a save or load. The engine never retries; retry policy belongs to the
// store.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
