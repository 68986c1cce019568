package chat_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
	"github.com/trezcool/maktab/storage/database/inmem"
)

type fakeModel struct {
	mu     sync.Mutex
	prompt chat.Prompt
	reply  string
	err    error
}

func (m *fakeModel) Generate(_ context.Context, p chat.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt = p
	return m.reply, m.err
}

type fakeFiles struct {
	uri  string
	err  error
	body string
}

func (f *fakeFiles) UploadFile(_ context.Context, _, _ string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	f.body = string(data)
	return f.uri, f.err
}

type countingRecorder struct {
	replies map[string]int
	uploads map[string]int
}

func (r *countingRecorder) ObserveReply(grounding, outcome string, _ time.Duration) {
	r.replies[grounding+"/"+outcome]++
}

func (r *countingRecorder) ObserveUpload(outcome string) {
	r.uploads[outcome]++
}

type fixture struct {
	catalog  catalog.Service
	model    *fakeModel
	files    *fakeFiles
	recorder *countingRecorder
	svc      chat.Service
	grade    catalog.Grade
	subject  catalog.Subject
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		catalog:  catalog.NewService(inmemdb.NewCatalogRepository(inmemdb.Open())),
		model:    &fakeModel{reply: "$x^2$"},
		files:    &fakeFiles{uri: "https://files/abc"},
		recorder: &countingRecorder{replies: map[string]int{}, uploads: map[string]int{}},
	}
	f.svc = chat.NewService(chat.Deps{Catalog: f.catalog, Model: f.model, Files: f.files, Recorder: f.recorder})

	var err error
	f.grade, err = f.catalog.CreateGrade(ctx, catalog.NewGrade{Name: "Синфи 9"})
	require.NoError(t, err)
	f.subject, err = f.catalog.CreateSubject(ctx, catalog.NewSubject{GradeID: f.grade.ID, Name: "Алгебра"})
	require.NoError(t, err)
	return f
}

func hasFileRef(parts []chat.Part) bool {
	for _, p := range parts {
		if _, ok := p.(chat.FileRef); ok {
			return true
		}
	}
	return false
}

func TestService_Reply_Textbook(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	req := chat.Request{SubjectID: f.subject.ID, ActionKey: "act_explain", Role: "Student", Language: "tj"}

	// no textbook yet: text only
	text, err := f.svc.Reply(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "$x^2$", text)
	assert.False(t, hasFileRef(f.model.prompt.Parts))
	assert.Equal(t, []chat.Part{chat.Text("Фаҳмондан")}, f.model.prompt.Parts)

	uri, err := f.svc.UploadTextbook(ctx, chat.Upload{SubjectID: f.subject.ID, Name: "algebra.pdf", MIMEType: "application/pdf", Body: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "https://files/abc", uri)
	assert.Equal(t, "%PDF", f.files.body)

	_, err = f.svc.Reply(ctx, req)
	require.NoError(t, err)
	assert.True(t, hasFileRef(f.model.prompt.Parts))
	assert.Equal(t, chat.FileRef{MIMEType: "application/pdf", URI: uri}, f.model.prompt.Parts[0])

	assert.Equal(t, 1, f.recorder.replies["none/ok"])
	assert.Equal(t, 1, f.recorder.replies["pdf/ok"])
	assert.Equal(t, 1, f.recorder.uploads["ok"])
}

func TestService_Reply_GradeName(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Reply(ctx, chat.Request{SubjectID: f.subject.ID, Message: "Чист?"})
	require.NoError(t, err)
	assert.Contains(t, f.model.prompt.SystemInstruction, "for a Student of Синфи 9.")

	_, err = f.svc.Reply(ctx, chat.Request{SubjectID: f.subject.ID, Message: "Чист?", GradeName: "5-й класс", Role: "Teacher"})
	require.NoError(t, err)
	assert.Contains(t, f.model.prompt.SystemInstruction, "for a Teacher of 5-й класс.")

	_, err = f.svc.Reply(ctx, chat.Request{Message: "Чист?"})
	require.NoError(t, err)
	assert.Contains(t, f.model.prompt.SystemInstruction, "for a Student of Синф.")
}

func TestService_Reply_Topic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	content := "Касрҳо"
	topic, err := f.catalog.CreateTopic(ctx, catalog.NewTopic{
		SubjectID: f.subject.ID,
		Name:      "Касрҳо",
		Content:   &content,
		Images: []catalog.TopicImage{
			{Data: "Yg==", MIMEType: "image/png", Order: 2},
			{Data: "YQ==", MIMEType: "image/png", Order: 1},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Reply(ctx, chat.Request{TopicID: topic.ID, ActionKey: "act_summary", Language: "ru"})
	require.NoError(t, err)
	assert.Equal(t, []chat.Part{
		chat.InlineData{MIMEType: "image/png", Data: "YQ=="},
		chat.InlineData{MIMEType: "image/png", Data: "Yg=="},
		chat.Text("Итог"),
	}, f.model.prompt.Parts)
	assert.Contains(t, f.model.prompt.SystemInstruction, "[TEXT CONTEXT]: Касрҳо")
	assert.Contains(t, f.model.prompt.SystemInstruction, "Синфи 9")

	t.Run("inline legacy grounding", func(t *testing.T) {
		_, err := f.svc.Reply(ctx, chat.Request{
			TopicName:    "Дроби",
			TopicContent: &content,
			TopicImages:  []catalog.TopicImage{{Data: "Yw==", MIMEType: "image/png"}},
			ActionKey:    "act_quiz",
		})
		require.NoError(t, err)
		assert.Len(t, f.model.prompt.Parts, 2)
	})

	t.Run("stale topic", func(t *testing.T) {
		_, err := f.svc.Reply(ctx, chat.Request{TopicID: "gone", Message: "?"})
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Reply_ModelFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "upstream error", err: errors.New("503 unavailable")},
		{name: "empty reply", reply: "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.model.reply, f.model.err = tt.reply, tt.err

			text, err := f.svc.Reply(ctx, chat.Request{SubjectID: f.subject.ID, Message: "?"})
			assert.Empty(t, text)
			assert.Equal(t, chat.ErrModel, errors.Cause(err))
			assert.Equal(t, 1, f.recorder.replies["none/error"])
		})
	}
}

func TestService_UploadTextbook(t *testing.T) {
	ctx := context.Background()

	t.Run("failure leaves subject untouched", func(t *testing.T) {
		f := setup(t)
		f.files.err = errors.New("quota exceeded")

		_, err := f.svc.UploadTextbook(ctx, chat.Upload{SubjectID: f.subject.ID, Name: "a.pdf", Body: strings.NewReader("x")})
		assert.Equal(t, chat.ErrUpload, errors.Cause(err))

		s, err := f.catalog.GetSubject(ctx, f.subject.ID)
		require.NoError(t, err)
		assert.Nil(t, s.PDFURI)
		assert.Equal(t, 1, f.recorder.uploads["error"])
	})

	t.Run("unknown subject is not uploaded", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.UploadTextbook(ctx, chat.Upload{SubjectID: "gone", Name: "a.pdf", Body: strings.NewReader("x")})
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))
		assert.Empty(t, f.files.body)
	})

	t.Run("without subject", func(t *testing.T) {
		f := setup(t)
		uri, err := f.svc.UploadTextbook(ctx, chat.Upload{Name: "a.pdf", Body: strings.NewReader("x")})
		require.NoError(t, err)
		assert.Equal(t, "https://files/abc", uri)
	})
}

func TestService_Actions(t *testing.T) {
	f := setup(t)
	assert.Equal(t, []chat.ActionItem{
		{Key: chat.ActLessonPlan, Label: "План урока"},
		{Key: chat.ActQuiz, Label: "Тест"},
		{Key: chat.ActActivities, Label: "Задания"},
	}, f.svc.Actions(chat.RoleTeacher, chat.LangRussian))
}
