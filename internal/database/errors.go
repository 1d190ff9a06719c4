package database

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced person or face does not exist.
// Callers check it with errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError is returned when a request references faces that cannot
// be used for the operation (unknown ids, already assigned faces, dimension
// mismatches). FaceIDs lists the offending ids when applicable.
type ValidationError struct {
	Reason  string
	FaceIDs []string
}

func (e *ValidationError) Error() string {
	if len(e.FaceIDs) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.FaceIDs, ", "))
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
