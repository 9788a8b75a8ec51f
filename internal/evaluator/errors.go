package evaluator

import "fmt"

// ValidationError reports a malformed request. Nothing has been probed or
// written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// PersistenceError reports a failed score lookup or write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SubmissionUpdateError is logged when the submission bookkeeping write fails.
// It never fails an evaluation.
type SubmissionUpdateError struct {
	SubmissionID string
	Err          error
}

func (e *SubmissionUpdateError) Error() string {
	return fmt.Sprintf("updating submission %s: %v", e.SubmissionID, e.Err)
}

func (e *SubmissionUpdateError) Unwrap() error { return e.Err }
