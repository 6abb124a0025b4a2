package services

import "fmt"

// ValidationError indicates malformed or missing required input. It is
// raised before any mutation happens.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidStateError indicates an operation that is not permitted given the
// entity's current state (e.g. canceling an order already in preparation).
type InvalidStateError struct {
	Code    string
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// AuthorizationError indicates the caller lacks the required role or does
// not own the entity being operated on.
type AuthorizationError struct {
	Code    string
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ExternalServiceError indicates a dependency (payment gateway, Auth0, S3)
// was unreachable or returned an error.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
