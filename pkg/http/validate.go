package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by the name the client sent, not the Go field name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "param", "json"} {
			if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// ReadAndValidateRequest binds path and query values into req, fills
// `default` tags, then checks `validate` tags. It returns nil on success and
// one entry per offending field otherwise.
func ReadAndValidateRequest(c echo.Context, req interface{}) []*AppError {
	if err := c.Bind(req); err != nil {
		return []*AppError{bindError(err)}
	}
	if err := defaults.Set(req); err != nil {
		return []*AppError{InternalError("Something went wrong").WithError(err)}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// RejectEmptyQuery fails fields that appear in the query string with no
// value. Binding would otherwise leave them zero and let defaults apply.
func RejectEmptyQuery(c echo.Context, fields ...string) []*AppError {
	q := c.QueryParams()
	var errs []*AppError
	for _, f := range fields {
		if q.Has(f) && strings.TrimSpace(q.Get(f)) == "" {
			errs = append(errs, InvalidParameterError(f, f+" must not be empty"))
		}
	}
	return errs
}

func bindError(err error) *AppError {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return InvalidParameterError(be.Field, be.Field+" has an invalid value").
			WithParam("value", strings.Join(be.Values, ",")).
			WithError(err)
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return InvalidParameterError("", fmt.Sprint(he.Message)).WithError(err)
	}
	return InvalidParameterError("", err.Error()).WithError(err)
}

func fieldErrors(err error) []*AppError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []*AppError{InvalidParameterError("", err.Error()).WithError(err)}
	}
	errs := make([]*AppError, 0, len(ves))
	for _, fe := range ves {
		e := InvalidParameterError(fe.Field(), ruleMessage(fe)).WithParam("rule", fe.Tag())
		if fe.Param() != "" {
			e.WithParam("bound", fe.Param())
		}
		errs = append(errs, e)
	}
	return errs
}

// ruleMessage covers the tags used by the request models.
func ruleMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
