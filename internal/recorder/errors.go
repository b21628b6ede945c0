package recorder

import "fmt"

// ValidationError reports a submission that was rejected before anything was written.
// Its message is safe to show to the submitter.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a failure of the transactional write. Nothing from
// the match was committed.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to record match: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
