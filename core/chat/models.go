package chat

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
)

type Role string

const (
	RoleTeacher Role = "Teacher"
	RoleStudent Role = "Student"
)

// ParseRole maps anything but a teacher to a student.
func ParseRole(s string) Role {
	if strings.EqualFold(core.CleanString(s), string(RoleTeacher)) {
		return RoleTeacher
	}
	return RoleStudent
}

type Language string

const (
	LangTajik   Language = "tj"
	LangRussian Language = "ru"
)

// ParseLanguage accepts language codes and Accept-Language style values ("ru-RU"); it defaults to Tajik.
func ParseLanguage(s string) Language {
	if strings.HasPrefix(core.CleanString(s, true), string(LangRussian)) {
		return LangRussian
	}
	return LangTajik
}

// Session is the per-request context a chat turn is answered in.
type Session struct {
	Role      Role
	GradeName string
	Language  Language
}

func NewSession(role, gradeName, lang string) Session {
	return Session{
		Role:      ParseRole(role),
		GradeName: core.CleanString(gradeName),
		Language:  ParseLanguage(lang),
	}
}

// Action is a pedagogical intent driving the prompt.
type Action string

const (
	ActExplain    Action = "act_explain"
	ActSummary    Action = "act_summary"
	ActQuiz       Action = "act_quiz"
	ActLessonPlan Action = "act_lesson_plan"
	ActExamples   Action = "act_examples"
	ActActivities Action = "act_activities"
)

var (
	teacherActions = []Action{ActLessonPlan, ActQuiz, ActActivities}
	studentActions = []Action{ActExplain, ActExamples, ActSummary}
)

// ActionsFor returns the actions offered to role, in display order.
func ActionsFor(role Role) []Action {
	if role == RoleTeacher {
		return append([]Action(nil), teacherActions...)
	}
	return append([]Action(nil), studentActions...)
}

// Label returns the localized label of the action, or the raw key when unknown.
func (a Action) Label(lang Language) string {
	if s, ok := lookup(lang, string(a)); ok {
		return s
	}
	return string(a)
}

type ActionItem struct {
	Key   Action `json:"key"`
	Label string `json:"label"`
}

// Grounding is the curriculum material a turn is constrained to.
type Grounding struct {
	Content *string
	Images  []catalog.TopicImage
	PDFURI  *string
}

func (g Grounding) HasImages() bool {
	return len(g.Images) > 0
}

func (g Grounding) HasText() bool {
	return g.Content != nil && strings.TrimSpace(*g.Content) != ""
}

func (g Grounding) HasPDF() bool {
	return g.PDFURI != nil && *g.PDFURI != ""
}

// Kind names the grounding used, for metrics.
func (g Grounding) Kind() string {
	switch {
	case g.HasImages():
		return "images"
	case g.HasPDF():
		return "pdf"
	case g.HasText():
		return "text"
	default:
		return "none"
	}
}

// Request is a chat turn as sent by clients.
// SubjectID selects a subject's textbook; TopicID selects stored topic grounding;
// the Topic* fields carry grounding inline for older clients.
type Request struct {
	SubjectID    string               `json:"subjectId"`
	TopicID      string               `json:"topicId"`
	Message      string               `json:"message" validate:"required_without=ActionKey"`
	ActionKey    string               `json:"actionKey"`
	Role         string               `json:"role"`
	GradeName    string               `json:"gradeName"`
	Language     string               `json:"language"`
	TopicName    string               `json:"topicName"`
	TopicContent *string              `json:"topicContent"`
	TopicImages  []catalog.TopicImage `json:"topicImages" validate:"omitempty,dive"`
}

func (r *Request) Validate(validate *validator.Validate) error {
	r.SubjectID = core.CleanString(r.SubjectID)
	r.TopicID = core.CleanString(r.TopicID)
	r.Message = core.CleanString(r.Message)
	r.ActionKey = core.CleanString(r.ActionKey)
	r.GradeName = core.CleanString(r.GradeName)
	if r.Language = core.CleanString(r.Language, true); r.Language != "" {
		r.Language = string(ParseLanguage(r.Language))
	}
	r.TopicName = core.CleanString(r.TopicName)
	return validate.Struct(r)
}

func (r Request) Session() Session {
	return NewSession(r.Role, r.GradeName, r.Language)
}
