package engine

import (
	"errors"
	"fmt"
)

// InputError marks a submission rejected before any state changed.
// Callers map it to a 400-class response.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// DependencyError marks a failure in a backing store on the submission
// path. State may be partially updated; callers map it to a 500-class
// response and the next submission or audit cycle reconciles.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *DependencyError) Unwrap() error { return e.Err }

// IsInputError reports whether err is a rejected submission.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// IsDependencyError reports whether err is a backing store failure.
func IsDependencyError(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
