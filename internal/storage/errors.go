package storage

import "errors"

// NotFoundError is returned when a key does not exist in the bucket.
// Callers match it with errors.As or IsNotFound; error text is never inspected.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return "object not found: " + e.Key
}

// IsNotFound reports whether err (or anything it wraps) is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
