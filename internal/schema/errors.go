package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// FieldError reports a single field that failed to bind.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Field %s: %s", e.Field, e.Reason)
}

// EmptyError is returned when a schema is bound from an empty mapping.
type EmptyError struct {
	Schema string
}

func (e *EmptyError) Error() string {
	return "Empty " + e.Schema + "."
}

// listFormat renders aggregated field errors as one comma-separated line,
// keeping declaration order.
func listFormat(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, ", ")
}

// aggregate finalizes a collected error set, returning nil when it is empty.
func aggregate(errs *multierror.Error) error {
	if errs == nil {
		return nil
	}
	errs.ErrorFormat = listFormat
	return errs.ErrorOrNil()
}
