// Package errors contains helper functions and types to work with errors
package errors

import (
	"errors"
	"net/http"
)

// Category defines error category
type Category int

const (
	// CategoryNoError is used when an operation completed without error.
	CategoryNoError Category = iota
	// CategoryDataError The client sent invalid data in the request,
	// for example a malformed identity or an unparsable payload.
	CategoryDataError
	// CategoryUnauthorized The caller is not authorized for the requested operation
	CategoryUnauthorized
	// CategoryForbidden The caller lacks the delegated authorization the operation requires
	CategoryForbidden
	// CategoryResourceNotFound The requested asset or record does not exist
	CategoryResourceNotFound
	// CategoryDataConflict The operation conflicts with existing state, e.g. a duplicate asset id
	CategoryDataConflict
	// CategoryUnconfigured A required configuration entry (such as a peer) is missing
	CategoryUnconfigured
	// CategoryInsufficientFunds The prepaid balance cannot cover the quoted cost
	CategoryInsufficientFunds
	// CategoryDependencyFailure A dependent service (e.g. the transport) is failing
	CategoryDependencyFailure
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError
)

func (c Category) String() string {
	switch c {
	case CategoryDataError:
		return "CategoryDataError"
	case CategoryUnauthorized:
		return "CategoryUnauthorized"
	case CategoryForbidden:
		return "CategoryForbidden"
	case CategoryResourceNotFound:
		return "CategoryResourceNotFound"
	case CategoryDataConflict:
		return "CategoryDataConflict"
	case CategoryUnconfigured:
		return "CategoryUnconfigured"
	case CategoryInsufficientFunds:
		return "CategoryInsufficientFunds"
	case CategoryDependencyFailure:
		return "CategoryDependencyFailure"
	default:
		return "CategoryGeneralError"
	}
}

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

// Error method to comply with error interface
func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that provided error is a ServiceError with desired Category
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category == cat {
		return true
	}
	return false
}

// GeneralError returns a general service error
// the message sent to the user is "Internal Server Error"
// the error passed is logged in the logger
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryGeneralError,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// BadRequestError returns an error with category DataError
// the error message provided is returned to the user
func BadRequestError(err error, message string) error {
	if err == nil {
		err = errors.New("bad request:" + message)
	}
	return &ServiceError{
		Category: CategoryDataError,
		Message:  message,
		Err:      err,
	}
}

// UnAuthorizedError returns an error with category CategoryUnauthorized
// the error message provided is returned to the user
func UnAuthorizedError(err error, message string) error {
	if err == nil {
		err = errors.New("unauthorized")
	}
	return &ServiceError{
		Category: CategoryUnauthorized,
		Message:  message,
		Err:      err,
	}
}

// ForbiddenError returns an error with category CategoryForbidden
// the error message provided is returned to the user
func ForbiddenError(err error, message string) error {
	if err == nil {
		err = errors.New("request forbidden")
	}
	return &ServiceError{
		Category: CategoryForbidden,
		Message:  message,
		Err:      err,
	}
}

// ResourceNotFoundError returns an error with category ResourceNotFound
// the error message provided is returned to the user
func ResourceNotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("resource not found:" + message)
	}
	return &ServiceError{
		Category: CategoryResourceNotFound,
		Message:  message,
		Err:      err,
	}
}

// ConflictError returns an error with category CategoryDataConflict
// the error message provided is returned to the user
func ConflictError(err error, message string) error {
	if err == nil {
		err = errors.New("conflict")
	}
	return &ServiceError{
		Category: CategoryDataConflict,
		Message:  message,
		Err:      err,
	}
}

// UnconfiguredError returns an error with category CategoryUnconfigured
// the error message provided is returned to the user
func UnconfiguredError(err error, message string) error {
	if err == nil {
		err = errors.New("not configured:" + message)
	}
	return &ServiceError{
		Category: CategoryUnconfigured,
		Message:  message,
		Err:      err,
	}
}

// InsufficientFundsError returns an error with category CategoryInsufficientFunds
// the error message provided is returned to the user
func InsufficientFundsError(err error, message string) error {
	if err == nil {
		err = errors.New("insufficient funds:" + message)
	}
	return &ServiceError{
		Category: CategoryInsufficientFunds,
		Message:  message,
		Err:      err,
	}
}

// StatusCode returns the HTTP status code for the error category
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDataConflict:
		return http.StatusConflict
	case CategoryUnconfigured:
		return http.StatusPreconditionFailed
	case CategoryInsufficientFunds:
		return http.StatusPaymentRequired
	case CategoryDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
