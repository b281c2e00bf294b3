package helpers

import (
	"errors"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	ErrHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	ErrHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTokenSigningFailed   = errors.New("failed to sign token")

	translator ut.Translator
)

// SetTranslator sets the translator used to render validation errors.
func SetTranslator(t ut.Translator) { translator = t }

// statusOf maps domain errors to HTTP status codes. Unknown errors are
// treated as server errors.
func statusOf(err error) (int, bool) {
	switch err {
	case user.ErrNotFound, checkin.ErrSessionNotFound, checkin.ErrRecordNotFound, badge.ErrBadgeNotFound:
		return http.StatusNotFound, true
	case checkin.ErrSessionAlreadyActive, checkin.ErrAlreadyCheckedIn:
		return http.StatusConflict, true
	case checkin.ErrSessionClosed, badge.ErrExpired:
		return http.StatusGone, true
	case checkin.ErrInvalidToken, checkin.ErrWrongTokenKind, checkin.ErrLocationRequired,
		badge.ErrInvalidToken, badge.ErrWrongTokenKind:
		return http.StatusBadRequest, true
	case checkin.ErrNotAllowed, checkin.ErrNotSessionOwner:
		return http.StatusForbidden, true
	}
	return 0, false
}

func AppHTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message interface{}

	var oorErr *checkin.OutOfRangeError

	switch err := err.(type) {
	case *echo.HTTPError:
		if err == middleware.ErrJWTMissing {
			code = http.StatusUnauthorized
			message = err.Message
			break
		}
		if err.Internal != nil {
			if herr, ok := err.Internal.(*echo.HTTPError); ok {
				err = herr
			}
		}
		code = err.Code
		message = err.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string)
		for _, vErr := range err {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		code = http.StatusBadRequest
		message = fldErrs
	case *core.ValidationError:
		if err.Fields != nil {
			fldErrs := make(map[string]string)
			for _, fErr := range err.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = err.Error()
		}
		code = http.StatusBadRequest
	default:
		if errors.As(err, &oorErr) {
			code = http.StatusBadRequest
			message = echo.Map{
				"error":           oorErr.Error(),
				"distance_meters": oorErr.DistanceMeters,
				"radius_meters":   oorErr.RadiusMeters,
			}
			break
		}
		if status, ok := statusOf(err); ok {
			code = status
			message = err.Error()
			break
		}
		// any other error is a server error
		code = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
	}

	if c.Echo().Debug {
		message = err.Error()
	} else if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	// Send response
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead { // Issue #608
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
