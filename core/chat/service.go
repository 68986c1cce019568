package chat

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
)

var (
	// errors
	ErrModel  = errors.New("model failure")
	ErrUpload = errors.New("file upload failed")
)

type (
	// Model generates a text reply for a prompt.
	Model interface {
		Generate(ctx context.Context, prompt Prompt) (string, error)
	}

	// FileStore keeps files on the model provider's side and returns their opaque URI.
	FileStore interface {
		UploadFile(ctx context.Context, name, mimeType string, r io.Reader) (uri string, err error)
	}

	// Recorder observes chat turns and uploads.
	Recorder interface {
		ObserveReply(grounding, outcome string, elapsed time.Duration)
		ObserveUpload(outcome string)
	}

	// Upload is a textbook to forward to the FileStore, optionally attached to a subject.
	Upload struct {
		SubjectID string
		Name      string
		MIMEType  string
		Body      io.Reader
	}

	Service interface {
		// Reply answers one chat turn with the model's text.
		Reply(ctx context.Context, req Request) (string, error)
		// Actions lists the localized actions offered to role.
		Actions(role Role, lang Language) []ActionItem
		// UploadTextbook stores the file and, when a subject is given, points it at the new URI.
		UploadTextbook(ctx context.Context, up Upload) (string, error)
	}

	Deps struct {
		Catalog     catalog.Service
		Model       Model
		Files       FileStore
		Recorder    Recorder
		Temperature float32
	}

	service struct {
		catalog     catalog.Service
		model       Model
		files       FileStore
		recorder    Recorder
		temperature float32
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	svc := &service{
		catalog:     deps.Catalog,
		model:       deps.Model,
		files:       deps.Files,
		recorder:    deps.Recorder,
		temperature: deps.Temperature,
	}
	if svc.recorder == nil {
		svc.recorder = nopRecorder{}
	}
	if svc.temperature <= 0 {
		svc.temperature = Temperature
	}
	return svc
}

func (svc *service) Reply(ctx context.Context, req Request) (string, error) {
	sess := req.Session()
	grounding, err := svc.resolve(ctx, req, &sess)
	if err != nil {
		return "", err
	}

	prompt := Assemble(sess, grounding, req.Message, Action(req.ActionKey))
	prompt.Temperature = svc.temperature

	start := time.Now()
	text, err := svc.model.Generate(ctx, prompt)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		svc.recorder.ObserveReply(grounding.Kind(), "error", time.Since(start))
		return "", errors.Wrap(ErrModel, err.Error())
	}
	svc.recorder.ObserveReply(grounding.Kind(), "ok", time.Since(start))
	return text, nil
}

// resolve gathers the grounding of req: inline fields first, then the stored topic,
// then the subject's textbook. It fills in the grade name from the catalog when missing.
func (svc *service) resolve(ctx context.Context, req Request, sess *Session) (Grounding, error) {
	grounding := Grounding{Content: req.TopicContent, Images: req.TopicImages}

	subjectID := req.SubjectID
	if req.TopicID != "" {
		topic, err := svc.catalog.GetTopic(ctx, req.TopicID)
		if err != nil {
			return Grounding{}, errors.Wrap(err, "resolving topic")
		}
		grounding.Content = topic.Content
		grounding.Images = topic.Images
		if subjectID == "" {
			subjectID = topic.SubjectID
		}
	}

	if subjectID != "" {
		subject, err := svc.catalog.GetSubject(ctx, subjectID)
		if err != nil {
			return Grounding{}, errors.Wrap(err, "resolving subject")
		}
		grounding.PDFURI = subject.PDFURI

		if sess.GradeName == "" {
			// the generic grade name is used when the grade is gone
			if grade, err := svc.catalog.GetGrade(ctx, subject.GradeID); err == nil {
				sess.GradeName = grade.Name
			}
		}
	}
	return grounding, nil
}

func (svc *service) Actions(role Role, lang Language) []ActionItem {
	actions := ActionsFor(role)
	items := make([]ActionItem, 0, len(actions))
	for _, a := range actions {
		items = append(items, ActionItem{Key: a, Label: a.Label(lang)})
	}
	return items
}

func (svc *service) UploadTextbook(ctx context.Context, up Upload) (string, error) {
	up.SubjectID = core.CleanString(up.SubjectID)
	if up.SubjectID != "" {
		if _, err := svc.catalog.GetSubject(ctx, up.SubjectID); err != nil {
			return "", errors.Wrap(err, "resolving subject")
		}
	}

	uri, err := svc.files.UploadFile(ctx, up.Name, up.MIMEType, up.Body)
	if err == nil && uri == "" {
		err = errors.New("no uri returned")
	}
	if err != nil {
		svc.recorder.ObserveUpload("error")
		return "", errors.Wrap(ErrUpload, err.Error())
	}
	svc.recorder.ObserveUpload("ok")

	if up.SubjectID != "" {
		if _, err := svc.catalog.SetSubjectPDF(ctx, up.SubjectID, uri); err != nil {
			return "", errors.Wrap(err, "attaching textbook")
		}
	}
	return uri, nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveReply(string, string, time.Duration) {}
func (nopRecorder) ObserveUpload(string)                       {}
