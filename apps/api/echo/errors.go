package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/sync"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "operator not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// ConflictResponse is sent when a restore needs confirmation.
type ConflictResponse struct {
	Error        string `json:"error"`
	BackupLatest string `json:"backup_latest"`
	LiveLatest   string `json:"live_latest"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch origErr {
			case student.ErrNotFound, syncsvc.ErrNoRemoteData:
				code = http.StatusNotFound
				message = origErr.Error()
			case backup.ErrConfirmationRequired:
				code = http.StatusConflict
				resp := ConflictResponse{Error: origErr.Error()}
				var cErr *backup.ConflictError
				if errors.As(err, &cErr) {
					resp.BackupLatest = formatTime(cErr.BackupLatest)
					resp.LiveLatest = formatTime(cErr.LiveLatest)
				}
				message = resp
			case session.ErrSyncDisabled:
				code = http.StatusServiceUnavailable
				message = origErr.Error()
			case core.ErrStorage, syncsvc.ErrRemote:
				code = http.StatusServiceUnavailable
				message = origErr.Error()
				logger.Error(origErr.Error(), err, contextActor(ctx))
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextActor(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			if _, ok := message.(ConflictResponse); !ok {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func contextActor(ctx echo.Context) core.Actor {
	var actor core.Actor
	if claims, err := getContextClaims(ctx); err == nil {
		actor.ID = claims.Subject
		actor.Username = claims.Username
	}
	return actor
}
