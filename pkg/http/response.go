package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the API envelope with statusCode as both the HTTP
// status and the envelope status.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// ErrorsResponse writes errs under the status of the first entry.
func ErrorsResponse(c echo.Context, errs []*AppError) error {
	if len(errs) == 0 {
		errs = []*AppError{InternalError("Something went wrong")}
	}
	return DataResponse(c, errs[0].Status, errs)
}

// AppErrorResponse writes err if it is an *AppError and a generic
// ERR_INTERNAL entry otherwise.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError("Something went wrong")
	}
	return ErrorsResponse(c, []*AppError{appErr})
}
