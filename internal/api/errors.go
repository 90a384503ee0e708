package api

import (
	"errors"
	"net/http"

	"pkgindex/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes. Failed
// authentication and failed authorization both answer 401 so probing cannot
// distinguish a missing credential from a missing permission.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var unauthenticated *domain.UnauthenticatedError
	var notAuthorized *domain.NotAuthorizedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var methodNotAllowed *domain.MethodNotAllowedError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &notAuthorized):
		return http.StatusUnauthorized
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &methodNotAllowed):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
