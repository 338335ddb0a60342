package predictor

import (
	"fmt"
)

var (
	ErrEmptyInput          = fmt.Errorf("input matrix is empty")
	ErrNotFitted           = fmt.Errorf("model is not fitted")
	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrLabelLengthMismatch = fmt.Errorf("label length mismatch")
)

// LabelLengthMismatchError is returned by fit when the label count differs
// from the number of reference rows.
type LabelLengthMismatchError struct {
	Expected, Found int
}

func (e *LabelLengthMismatchError) Error() string {
	return fmt.Sprintf("label length mismatch: expected %d, found %d", e.Expected, e.Found)
}

func (e *LabelLengthMismatchError) Is(target error) bool {
	return target == ErrLabelLengthMismatch
}

// InvalidInputf wraps ErrInvalidInput with a formatted reason.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
