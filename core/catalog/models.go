package catalog

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/maktab/core"
)

// Grade is a school year level; the catalog root.
type Grade struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject is a course within a grade, optionally grounded by an uploaded textbook.
// PDFURI is the opaque reference returned by the model provider's file storage.
type Subject struct {
	ID      string  `json:"id"`
	GradeID string  `json:"gradeId"`
	Name    string  `json:"name"`
	PDFURI  *string `json:"pdfUri"`
}

func (s Subject) HasPDF() bool {
	return s.PDFURI != nil && *s.PDFURI != ""
}

// TopicImage is a base64 encoded image attached to a Topic.
// Order determines the presentation sequence and is not guaranteed to be unique.
type TopicImage struct {
	Data     string `json:"data" validate:"required,base64"`
	MIMEType string `json:"mimeType" validate:"required,startswith=image/"`
	Order    int    `json:"order"`
}

// Topic is a sub-unit of a Subject carrying explicit text and/or image grounding.
type Topic struct {
	ID        string       `json:"id"`
	SubjectID string       `json:"subjectId"`
	Name      string       `json:"name"`
	Content   *string      `json:"content"`
	Images    []TopicImage `json:"images,omitempty"`
}

// SortImages sorts images ascending by Order, keeping the insertion order of equal orders.
func SortImages(images []TopicImage) []TopicImage {
	sorted := make([]TopicImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return sorted
}

// NewGrade contains information needed to create a new Grade.
// ID may be generated by the client; one is assigned otherwise.
type NewGrade struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Name string `json:"name" validate:"required,notblank,max=255"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.ID = core.CleanString(ng.ID)
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
type UpdateGrade struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	return validate.Struct(ug)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	ID      string  `json:"id" validate:"omitempty,max=64"`
	GradeID string  `json:"gradeId" validate:"required,notblank"`
	Name    string  `json:"name" validate:"required,notblank,max=255"`
	PDFURI  *string `json:"pdfUri"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.GradeID = core.CleanString(ns.GradeID)
	ns.Name = core.CleanString(ns.Name)
	ns.PDFURI = cleanOptional(ns.PDFURI)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// Blank fields keep their current value; a nil or blank PDFURI keeps the current textbook.
type UpdateSubject struct {
	GradeID string  `json:"gradeId"`
	Name    string  `json:"name" validate:"max=255"`
	PDFURI  *string `json:"pdfUri"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate) error {
	if gradeID := core.CleanString(us.GradeID); gradeID != "" {
		us.GradeID = gradeID
	} else {
		us.GradeID = orig.GradeID
	}
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	us.PDFURI = cleanOptional(us.PDFURI)
	return validate.Struct(us)
}

// NewTopic contains information needed to create a new Topic with its images.
type NewTopic struct {
	ID        string       `json:"id" validate:"omitempty,max=64"`
	SubjectID string       `json:"subjectId" validate:"required,notblank"`
	Name      string       `json:"name" validate:"required,notblank,max=255"`
	Content   *string      `json:"content"`
	Images    []TopicImage `json:"images" validate:"omitempty,dive"`
}

func (nt *NewTopic) Validate(validate *validator.Validate) error {
	nt.ID = core.CleanString(nt.ID)
	nt.SubjectID = core.CleanString(nt.SubjectID)
	nt.Name = core.CleanString(nt.Name)
	nt.Content = cleanOptional(nt.Content)
	return validate.Struct(nt)
}

// UpdateTopic defines what information may be provided to modify an existing Topic.
// Images replace the stored ones when present, even if empty.
type UpdateTopic struct {
	SubjectID string       `json:"subjectId"`
	Name      string       `json:"name" validate:"max=255"`
	Content   *string      `json:"content"`
	Images    []TopicImage `json:"images" validate:"omitempty,dive"`
}

func (ut *UpdateTopic) Validate(orig Topic, validate *validator.Validate) error {
	if subjectID := core.CleanString(ut.SubjectID); subjectID != "" {
		ut.SubjectID = subjectID
	} else {
		ut.SubjectID = orig.SubjectID
	}
	if name := core.CleanString(ut.Name); name != "" {
		ut.Name = name
	} else {
		ut.Name = orig.Name
	}
	if ut.Content == nil {
		ut.Content = orig.Content
	} else {
		ut.Content = cleanOptional(ut.Content)
	}
	return validate.Struct(ut)
}

type SubjectFilter struct {
	GradeID string
}

type TopicFilter struct {
	SubjectID string
	Search    string `query:"search"`
}

func (tf *TopicFilter) Clean() {
	tf.SubjectID = core.CleanString(tf.SubjectID)
	tf.Search = core.CleanString(tf.Search)
}

// MatchTopicName does a case-insensitive substring match of search on name.
func MatchTopicName(name, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

// cleanOptional trims s and turns blank values into nil.
func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
