package client

import (
	"context"
	"strings"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/core/chat"
)

type Screen int

const (
	ScreenGrades Screen = iota
	ScreenSubjects
	ScreenTopics
	ScreenChat
)

func (s Screen) String() string {
	switch s {
	case ScreenSubjects:
		return "subjects"
	case ScreenTopics:
		return "topics"
	case ScreenChat:
		return "chat"
	default:
		return "grades"
	}
}

// Backend is the part of the API the selection flow reads from. *Client implements it.
type Backend interface {
	Grades(ctx context.Context) ([]catalog.Grade, error)
	Subjects(ctx context.Context, gradeID string) ([]catalog.Subject, error)
	Topics(ctx context.Context, subjectID, search string) ([]catalog.Topic, error)
	SubjectGrade(ctx context.Context, subjectID string) (catalog.Grade, error)
}

var _ Backend = (*Client)(nil)

// Flow walks grade -> subject -> (topic) -> chat.
type Flow struct {
	api     Backend
	screen  Screen
	grade   catalog.Grade
	subject catalog.Subject
	topic   *catalog.Topic
}

func NewFlow(api Backend) *Flow {
	return &Flow{api: api}
}

func (f *Flow) Screen() Screen           { return f.screen }
func (f *Flow) Grade() catalog.Grade     { return f.grade }
func (f *Flow) Subject() catalog.Subject { return f.subject }
func (f *Flow) Topic() *catalog.Topic    { return f.topic }

func (f *Flow) Grades(ctx context.Context) ([]catalog.Grade, error) {
	return f.api.Grades(ctx)
}

func (f *Flow) SelectGrade(grade catalog.Grade) {
	f.grade = grade
	f.subject = catalog.Subject{}
	f.topic = nil
	f.screen = ScreenSubjects
}

// Subjects lists the subjects of the selected grade.
func (f *Flow) Subjects(ctx context.Context) ([]catalog.Subject, error) {
	return f.api.Subjects(ctx, f.grade.ID)
}

func (f *Flow) SelectSubject(subject catalog.Subject) {
	f.subject = subject
	f.topic = nil
	f.screen = ScreenTopics
}

// Topics lists the selected subject's topics matching search (empty matches all).
func (f *Flow) Topics(ctx context.Context, search string) ([]catalog.Topic, error) {
	return f.api.Topics(ctx, f.subject.ID, search)
}

// StartChat opens the chat for the selected subject, grounded on topic when one is given.
func (f *Flow) StartChat(topic *catalog.Topic) {
	f.topic = topic
	f.screen = ScreenChat
}

// Back moves one screen up. Leaving the chat re-reads the subject's grade
// so a stale selection never lingers; if that fails the flow restarts at grades.
func (f *Flow) Back(ctx context.Context) {
	switch f.screen {
	case ScreenChat:
		grade, err := f.api.SubjectGrade(ctx, f.subject.ID)
		if err != nil {
			f.reset()
			return
		}
		f.grade = grade
		f.subject = catalog.Subject{}
		f.topic = nil
		f.screen = ScreenSubjects
	case ScreenTopics:
		f.subject = catalog.Subject{}
		f.topic = nil
		f.screen = ScreenSubjects
	case ScreenSubjects:
		f.reset()
	}
}

func (f *Flow) reset() {
	*f = Flow{api: f.api}
}

// ChatRequest returns the request template for the current chat.
func (f *Flow) ChatRequest(role chat.Role, lang chat.Language) chat.Request {
	req := chat.Request{
		SubjectID: f.subject.ID,
		Role:      string(role),
		GradeName: f.grade.Name,
		Language:  string(lang),
	}
	if f.topic != nil {
		req.TopicID = f.topic.ID
		req.TopicName = f.topic.Name
	}
	return req
}

// FilterTopics keeps the topics whose name contains query, ignoring case.
func FilterTopics(topics []catalog.Topic, query string) []catalog.Topic {
	query = strings.TrimSpace(query)
	filtered := make([]catalog.Topic, 0, len(topics))
	for _, topic := range topics {
		if catalog.MatchTopicName(topic.Name, query) {
			filtered = append(filtered, topic)
		}
	}
	return filtered
}
