package echoapi

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

const (
	langCtxKey    = "lang"
	sessionCtxKey = "session"

	headerAcceptLanguage = "Accept-Language"
)

type (
	errorResponse struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields,omitempty"`
	}

	successResponse struct {
		Success bool `json:"success"`
	}
)

// requestLanguage picks the language errors are reported in:
// the one set by the handler, the "lang" query param, then Accept-Language.
func requestLanguage(ctx echo.Context) chat.Language {
	if lang, ok := ctx.Get(langCtxKey).(chat.Language); ok {
		return lang
	}
	if q := ctx.QueryParam("lang"); q != "" {
		return chat.ParseLanguage(q)
	}
	return chat.ParseLanguage(ctx.Request().Header.Get(headerAcceptLanguage))
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var code int
		var resp errorResponse
		lang := requestLanguage(ctx)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if msg, ok := origErr.Message.(string); ok {
				resp.Error = msg
			} else {
				resp.Error = strings.ToLower(http.StatusText(code))
			}
		case validator.ValidationErrors:
			resp.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				resp.Fields[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			resp.Error = chat.T(lang, chat.MsgFillError)
		case *core.ValidationError:
			if origErr.Fields != nil {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
			code = http.StatusBadRequest
			resp.Error = chat.T(lang, chat.MsgFillError)
			if origErr.Err != nil {
				resp.Error = origErr.Err.Error()
			}
		default:
			switch origErr {
			case catalog.ErrNotFound:
				code = http.StatusNotFound
				resp.Error = chat.T(lang, chat.MsgNotFound)
			case catalog.ErrParentNotFound:
				code = http.StatusBadRequest
				resp.Error = origErr.Error()
			case chat.ErrModel:
				code = http.StatusInternalServerError
				resp.Error = chat.T(lang, chat.MsgAIError)
				logError(logger, ctx, "model call failed", err)
			case chat.ErrUpload:
				code = http.StatusInternalServerError
				resp.Error = origErr.Error()
				logError(logger, ctx, "upload failed", err)
			default: // any other error is a server error
				code = http.StatusInternalServerError
				resp.Error = http.StatusText(http.StatusInternalServerError)
				logError(logger, ctx, resp.Error, err)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			resp.Error = err.Error()
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, resp)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func logError(logger core.Logger, ctx echo.Context, msg string, err error) {
	args := []interface{}{errors.Wrap(err, msg), ctx.Request()}
	if sess, ok := ctx.Get(sessionCtxKey).(chat.Session); ok {
		args = append(args, sess)
	}
	logger.Error(msg, args...)
}
