package errtype

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound represents the error for the cases when some entity is not found.
	ErrNotFound = errors.New("not found")
	// ErrBadInput represents the error for the cases when the user input is invalid.
	ErrBadInput = errors.New("bad input")
	// ErrUnauthorized represents the error for the cases when the authorization is required.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDatabaseConnection represents the error for the cases when the database can't be reached or queried.
	ErrDatabaseConnection = errors.New("database connection error")
	// ErrInvalidCompose represents the error for the compose files that can't be parsed or fail validation.
	ErrInvalidCompose = errors.New("invalid compose file")
	// ErrMissingToken represents the error for the case when the GitHub access token is not configured.
	ErrMissingToken = errors.New("github access token is not configured")
	// ErrInvalidConfig represents the error for the settings that can't be loaded.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind describes how an error class is exposed to API clients.
type Kind struct {
	Err    error
	Code   string
	Status int
}

// Kinds lists the known error classes in the order they are matched.
var Kinds = []Kind{
	{Err: ErrNotFound, Code: "NOT_FOUND", Status: http.StatusNotFound},
	{Err: ErrBadInput, Code: "BAD_INPUT", Status: http.StatusBadRequest},
	{Err: ErrUnauthorized, Code: "UNAUTHORIZED", Status: http.StatusUnauthorized},
	{Err: ErrInvalidCompose, Code: "INVALID_COMPOSE", Status: http.StatusUnprocessableEntity},
	{Err: ErrDatabaseConnection, Code: "DATABASE_CONNECTION_ERROR", Status: http.StatusServiceUnavailable},
}

// Internal is the kind used for errors that don't match any known class.
var Internal = Kind{Code: "INTERNAL_ERROR", Status: http.StatusInternalServerError}

// KindOf finds the class of the error.
func KindOf(err error) Kind {
	for _, k := range Kinds {
		if errors.Is(err, k.Err) {
			return k
		}
	}
	return Internal
}

// Details is the extra information exposed with the error to API clients.
type Details map[string]interface{}

type detailedError struct {
	err     error
	details Details
}

func (e detailedError) Error() string {
	return e.err.Error()
}

func (e detailedError) Unwrap() error {
	return e.err
}

// WithDetails attaches the details to the error.
func WithDetails(err error, details Details) error {
	if err == nil {
		return nil
	}
	return detailedError{err: err, details: details}
}

// DetailsOf returns the details attached anywhere in the error chain.
func DetailsOf(err error) Details {
	var d detailedError
	if errors.As(err, &d) {
		return d.details
	}
	return Details{}
}
