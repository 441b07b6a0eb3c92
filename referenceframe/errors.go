package referenceframe

import "github.com/pkg/errors"

// OOBErrString is a string that all OOB errors should contain, so that they can be checked for distinct from other
// Transform errors.
const OOBErrString = "input out of bounds"

// NewIncorrectDoFError returns an error indicating that the length of an input slice does not match the DoF of a frame.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}

// NewOutOfBoundsError returns an error for an input which violates its joint limit.
func NewOutOfBoundsError(idx int, value float64, lim Limit) error {
	return errors.Errorf("%s: joint %d value %.6f outside [%.6f, %.6f]", OOBErrString, idx, value, lim.Min, lim.Max)
}

// NewInvalidLimitError returns an error for a limit whose minimum exceeds its maximum.
func NewInvalidLimitError(idx int, lim Limit) error {
	return errors.Errorf("limit %d is invalid, min %.6f is greater than max %.6f", idx, lim.Min, lim.Max)
}
