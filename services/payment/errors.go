package payment

import "fmt"

// ValidationError indicates a request that fails shape checks before any
// record is written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced invoice, patient, or payment that does
// not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// GatewayError wraps a failure talking to the payment gateway: token fetch,
// push request, or a gateway-side rejection. The pending payment record is
// deliberately left in place when this is returned.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ConflictError indicates a write that would violate a state invariant, such
// as initiating a payment against an invoice that is already settled.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
