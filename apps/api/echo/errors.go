package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	"github.com/trezcool/kodi/core/messaging"
	"github.com/trezcool/kodi/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sentinels are bare domain errors that services return without a typed wrapper.
var sentinels = []struct {
	err  error
	code int
}{
	{messaging.ErrNotParticipant, http.StatusForbidden},
	{core.ErrInvalidPeriod, http.StatusBadRequest},
}

// apiError is what the handler answers with. body is either a message or a field -> message map.
type apiError struct {
	code int
	body interface{}
}

func (e apiError) payload() interface{} {
	if m, ok := e.body.(string); ok {
		return echo.Map{"error": m}
	}
	return e.body
}

// resolveError turns any handler error into an apiError. Unknown errors resolve to a 500.
func resolveError(err error, translator ut.Translator) apiError {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return apiError{code: http.StatusUnauthorized, body: cause.Message}
		}
		if herr, ok := cause.Internal.(*echo.HTTPError); ok {
			cause = herr
		}
		return apiError{code: cause.Code, body: cause.Message}
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return apiError{code: http.StatusBadRequest, body: fields}
	case *core.ValidationError:
		if cause.Fields == nil {
			return apiError{code: http.StatusBadRequest, body: cause.Error()}
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return apiError{code: http.StatusBadRequest, body: fields}
	case *core.NotFoundError:
		return apiError{code: http.StatusNotFound, body: cause.Error()}
	default:
		for _, s := range sentinels {
			if cause == s.err {
				return apiError{code: s.code, body: cause.Error()}
			}
		}
		return apiError{code: http.StatusInternalServerError, body: http.StatusText(http.StatusInternalServerError)}
	}
}

// requestUser is the authenticated user as far as the token tells, for error reports.
func requestUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Username = claims.Username
		usr.Email = claims.Email
		usr.Roles = claims.Roles
		usr.OwnerID = claims.OwnerID
		usr.TenantID = claims.TenantID
	}
	return usr
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		res := resolveError(err, translator)

		if res.code == http.StatusInternalServerError {
			req := ctx.Request()
			msg := res.body.(string)
			logger.Error(msg, errors.Wrap(err, msg), requestUser(ctx), map[string]interface{}{
				"method": req.Method,
				"path":   ctx.Path(),
				"uri":    req.RequestURI,
			})
			if core.IsShutdown(err) {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				res.body = err.Error()
			}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(res.code)
		} else {
			err = ctx.JSON(res.code, res.payload())
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
