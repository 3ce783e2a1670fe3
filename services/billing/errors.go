package billing

import "fmt"

// ValidationError indicates a malformed billing request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates an unknown invoice or patient.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConflictError indicates an edit against an invoice that has left the
// pending state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
