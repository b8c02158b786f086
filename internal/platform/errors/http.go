package errors

import (
	stderrors "errors"
	"net/http"
)

// CodeOf extracts the domain code from an error chain.
//
// Errors outside the domain map to CodeInternal so callers never branch on an
// unclassified failure.
func CodeOf(err error) Code {
	var domain *Error
	if stderrors.As(err, &domain) {
		return domain.Code
	}
	return CodeInternal
}

// HTTPStatus maps a domain error to the response status for the JSON surface.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch CodeOf(err) {
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
