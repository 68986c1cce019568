package echoapi

import (
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/chat"
)

// form fields accepted for the uploaded file, in order of preference
var uploadFields = []string{"pdf", "file"}

type (
	chatResponse struct {
		Text string `json:"text"`
	}

	uploadResponse struct {
		Success bool   `json:"success"`
		URI     string `json:"uri"`
	}

	chatApi struct {
		svc      chat.Service
		validate *validator.Validate
	}
)

func registerChatAPI(g *echo.Group, svc chat.Service, validate *validator.Validate) {
	api := chatApi{svc: svc, validate: validate}

	g.POST("/chat", api.reply)
	g.GET("/actions", api.queryActions)
	g.POST("/admin/upload", api.upload)
}

func (api *chatApi) reply(ctx echo.Context) error {
	var data chat.Request
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to chat.Request")
	}
	sess := data.Session()
	ctx.Set(langCtxKey, sess.Language)
	ctx.Set(sessionCtxKey, sess)

	if err := data.Validate(api.validate); err != nil {
		return err
	}

	text, err := api.svc.Reply(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "replying")
	}
	return ctx.JSON(http.StatusOK, chatResponse{Text: text})
}

func (api *chatApi) queryActions(ctx echo.Context) error {
	role := chat.ParseRole(ctx.QueryParam("role"))
	lang := chat.ParseLanguage(ctx.QueryParam("lang"))
	return ctx.JSON(http.StatusOK, api.svc.Actions(role, lang))
}

func (api *chatApi) upload(ctx echo.Context) error {
	var fh *multipart.FileHeader
	for _, field := range uploadFields {
		if h, err := ctx.FormFile(field); err == nil {
			fh = h
			break
		}
	}
	if fh == nil {
		return core.NewValidationError(nil, core.FieldError{Field: uploadFields[0], Error: "this field is required"})
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	uri, err := api.svc.UploadTextbook(ctx.Request().Context(), chat.Upload{
		SubjectID: ctx.FormValue("subjectId"),
		Name:      fh.Filename,
		MIMEType:  fileMIMEType(fh.Header.Get(echo.HeaderContentType), fh.Filename),
		Body:      f,
	})
	if err != nil {
		return errors.Wrap(err, "uploading textbook")
	}
	return ctx.JSON(http.StatusOK, uploadResponse{Success: true, URI: uri})
}

// fileMIMEType returns the part's declared type, else guesses it from the file extension.
func fileMIMEType(declared, filename string) string {
	if declared != "" && declared != echo.MIMEOctetStream {
		return declared
	}
	ext := filepath.Ext(filename)
	if ext == ".pdf" {
		return "application/pdf"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return echo.MIMEOctetStream
}
