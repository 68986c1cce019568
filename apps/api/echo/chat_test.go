package echoapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/tests"
)

func newUploadRequest(t *testing.T, field, filename, subjectID string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.4"))
		require.NoError(t, err)
	}
	if subjectID != "" {
		require.NoError(t, w.WriteField("subjectId", subjectID))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestChatApi_upload(t *testing.T) {
	app := setup(t)
	testutil.CreateGrade(t, app.repo, "g1", "Синфи 9")
	testutil.CreateSubject(t, app.repo, "s1", "g1", "Алгебра")

	t.Run("attaches to subject", func(t *testing.T) {
		req, rec := newUploadRequest(t, "pdf", "algebra.pdf", "s1")
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp uploadResponse
		marshalInto(t, rec.Body.Bytes(), &resp)
		assert.True(t, resp.Success)
		assert.True(t, strings.HasPrefix(resp.URI, "dummy://files/"))

		s, err := app.catalog.GetSubject(req.Context(), "s1")
		require.NoError(t, err)
		require.NotNil(t, s.PDFURI)
		assert.Equal(t, resp.URI, *s.PDFURI)
	})

	t.Run("file field", func(t *testing.T) {
		req, rec := newUploadRequest(t, "file", "book.pdf", "")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "", "", "s1")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]string{"pdf": "this field is required"}, decodeErr(t, rec).Fields)
	})

	t.Run("upstream failure", func(t *testing.T) {
		s, err := app.catalog.GetSubject(context.Background(), "s1")
		require.NoError(t, err)

		app.model.uploadErr = errors.New("quota exceeded")
		defer func() { app.model.uploadErr = nil }()

		req, rec := newUploadRequest(t, "pdf", "other.pdf", "s1")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, chat.ErrUpload.Error(), decodeErr(t, rec).Error)

		after, err := app.catalog.GetSubject(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, s.PDFURI, after.PDFURI, "subject must keep its textbook")
	})
}

func TestChatApi_reply(t *testing.T) {
	app := setup(t)
	testutil.CreateGrade(t, app.repo, "g1", "Синфи 9")
	testutil.CreateSubject(t, app.repo, "s1", "g1", "Алгебра")
	testutil.CreateSubject(t, app.repo, "s2", "g1", "Геометрия", "files/geo")

	app.run(t, []httpTest{
		{
			name: "action on subject without textbook", method: http.MethodPost, path: "/api/chat",
			body:     []byte(`{"subjectId":"s1","actionKey":"act_quiz","role":"Teacher","language":"ru"}`),
			wantData: marchallObj(t, chatResponse{Text: "Тест\n\n(images: 0, textbooks: 0)"}),
		},
		{
			name: "message on subject with textbook", method: http.MethodPost, path: "/api/chat",
			body:     []byte(`{"subjectId":"s2","message":"Секунҷа чист?","role":"Student","language":"tj"}`),
			wantData: marchallObj(t, chatResponse{Text: "Секунҷа чист?\n\n(images: 0, textbooks: 1)"}),
		},
		{
			name: "stale subject", method: http.MethodPost, path: "/api/chat",
			body:     []byte(`{"subjectId":"gone","message":"?"}`),
			wantCode: http.StatusNotFound,
		},
	})

	t.Run("system instruction", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: "/api/chat", body: []byte(`{"subjectId":"s1","actionKey":"act_quiz","role":"Teacher","language":"ru"}`)})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, app.model.prompt.SystemInstruction, "for a Teacher of Синфи 9")
		assert.Contains(t, app.model.prompt.SystemInstruction, "Respond strictly in Russian")
	})

	t.Run("accept-language style language", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: "/api/chat", body: []byte(`{"subjectId":"s1","actionKey":"act_quiz","role":"Teacher","language":"ru-RU"}`)})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, app.model.prompt.SystemInstruction, "Respond strictly in Russian")
	})

	t.Run("nothing to say", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: "/api/chat", body: []byte(`{"subjectId":"s1","language":"ru"}`)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Заполните все поля.", decodeErr(t, rec).Error)
	})

	t.Run("model failure", func(t *testing.T) {
		app.model.err = errors.New("503")
		defer func() { app.model.err = nil }()

		rec := app.do(httpTest{method: http.MethodPost, path: "/api/chat", body: []byte(`{"subjectId":"s1","message":"?","language":"tj"}`)})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Хатогӣ ҳангоми пайвастшавӣ.", decodeErr(t, rec).Error)
		assert.Contains(t, app.logger.errors, "model call failed")
	})
}

func TestChatApi_actions(t *testing.T) {
	app := setup(t)
	app.run(t, []httpTest{
		{
			name: "teacher ru", path: "/api/actions?role=Teacher&lang=ru",
			wantData: []byte(`[{"key":"act_lesson_plan","label":"План урока"},{"key":"act_quiz","label":"Тест"},{"key":"act_activities","label":"Задания"}]`),
		},
		{
			name: "default is student tj", path: "/api/actions",
			wantData: []byte(`[{"key":"act_explain","label":"Фаҳмондан"},{"key":"act_examples","label":"Мисолҳо"},{"key":"act_summary","label":"Хулоса"}]`),
		},
	})
}

func TestServer_misc(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Maktab AI API is running", rec.Body.String())

	app.do(httpTest{path: "/api/grades"})
	req, rec = newRequest(http.MethodGet, "/metrics")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/api/grades",status="200"} 1`)
}

func TestFileMIMEType(t *testing.T) {
	assert.Equal(t, "application/pdf", fileMIMEType("", "book.pdf"))
	assert.Equal(t, "application/pdf", fileMIMEType("application/octet-stream", "book.pdf"))
	assert.Equal(t, "image/png", fileMIMEType("image/png", "x.bin"))
	assert.Equal(t, "application/octet-stream", fileMIMEType("", "noext"))
}
