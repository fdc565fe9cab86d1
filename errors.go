package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a product, genre or user document does not exist.
	ErrNotFound = errors.New("catalog: not found")

	// ErrInvalidSort is returned for a sort key outside the supported set.
	ErrInvalidSort = errors.New("catalog: invalid sort key")

	// ErrMultipleRangeFields is returned when range operators target more than one field.
	ErrMultipleRangeFields = errors.New("catalog: range filters on more than one field")

	// ErrRangeOrderMismatch is returned when the first ordering is not on the range field.
	ErrRangeOrderMismatch = errors.New("catalog: first order field must be the range field")

	// ErrMembershipTooLarge is returned when an "in" list exceeds MaxMembership ids.
	ErrMembershipTooLarge = errors.New("catalog: membership list exceeds backing store limit")

	// ErrEmptyMembership is returned for an "in" constraint with no ids.
	ErrEmptyMembership = errors.New("catalog: membership list is empty")

	// ErrDuplicateArrayFilter is returned for more than one "in" or more than one
	// "array-contains" constraint in a single query.
	ErrDuplicateArrayFilter = errors.New("catalog: duplicate array filter")

	// ErrCursorWithoutOrder is returned when StartAfter is set on an unordered query.
	ErrCursorWithoutOrder = errors.New("catalog: cursor requires an ordering")
)

// ValidationError reports caller input that cannot be turned into a query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("catalog: invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("catalog: invalid %s: %s", e.Field, e.Reason)
}

// IsInvalid reports whether err was caused by caller input rather than by the
// backing store. HTTP handlers map these errors to 4xx responses.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var pse *PageSizeError
	if errors.As(err, &pse) {
		return true
	}
	for _, target := range []error{
		ErrInvalidSort,
		ErrMultipleRangeFields,
		ErrRangeOrderMismatch,
		ErrMembershipTooLarge,
		ErrEmptyMembership,
		ErrDuplicateArrayFilter,
		ErrCursorWithoutOrder,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
