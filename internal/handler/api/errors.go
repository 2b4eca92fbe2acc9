package api

import (
	"errors"

	domrepo "MacroPulse/internal/domain/repository"
	xhttp "MacroPulse/pkg/http"
)

// toAppError maps domain sentinels onto API errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, domrepo.ErrInvalidParameter):
		return xhttp.InvalidParameterError("", err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
