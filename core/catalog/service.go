package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core"
)

var (
	// errors
	ErrNotFound       = errors.New("not found")
	ErrParentNotFound = errors.New("referenced parent does not exist")
	ErrAlreadyExists  = errors.New("an entry with this id already exists")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, grade Grade, exec ...core.DBExecutor) (Grade, error)
		QueryGrades(ctx context.Context, exec ...core.DBExecutor) ([]Grade, error)
		GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (Grade, error)
		UpdateGrade(ctx context.Context, grade Grade, exec ...core.DBExecutor) (Grade, error)
		// DeleteGrade removes the Grade with its Subjects, their Topics and TopicImages.
		DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateSubject(ctx context.Context, subject Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter, exec ...core.DBExecutor) ([]Subject, error)
		GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		// UpdateSubject keeps the stored PDFURI when subject.PDFURI is nil.
		UpdateSubject(ctx context.Context, subject Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error

		// CreateTopic inserts the Topic and all its TopicImages atomically.
		CreateTopic(ctx context.Context, topic Topic, exec ...core.DBExecutor) (Topic, error)
		// QueryTopics returns Topics without their images.
		QueryTopics(ctx context.Context, filter TopicFilter, exec ...core.DBExecutor) ([]Topic, error)
		// GetTopic returns the Topic with its images ascending by TopicImage.Order.
		GetTopic(ctx context.Context, id string, exec ...core.DBExecutor) (Topic, error)
		UpdateTopic(ctx context.Context, topic Topic, replaceImages bool, exec ...core.DBExecutor) (Topic, error)
		DeleteTopic(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		CreateGrade(ctx context.Context, ng NewGrade) (Grade, error)
		QueryGrades(ctx context.Context) ([]Grade, error)
		GetGrade(ctx context.Context, id string) (Grade, error)
		UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error)
		DeleteGrade(ctx context.Context, id string) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		// QuerySubjects returns all Subjects when gradeID is empty.
		QuerySubjects(ctx context.Context, gradeID string) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		SetSubjectPDF(ctx context.Context, id, uri string) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
		// ParentGrade resolves the Grade a Subject belongs to.
		ParentGrade(ctx context.Context, subjectID string) (Grade, error)

		CreateTopic(ctx context.Context, nt NewTopic) (Topic, error)
		QueryTopics(ctx context.Context, filter TopicFilter) ([]Topic, error)
		GetTopic(ctx context.Context, id string) (Topic, error)
		UpdateTopic(ctx context.Context, id string, ut UpdateTopic) (Topic, error)
		DeleteTopic(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}

// trapExists turns a duplicate primary key into a field error on "id".
func trapExists(err error) error {
	if errors.Cause(err) == ErrAlreadyExists {
		return core.NewValidationError(ErrAlreadyExists, core.FieldError{Field: "id", Error: ErrAlreadyExists.Error()})
	}
	return err
}

// Grades

func (svc *service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	grade, err := svc.repo.CreateGrade(ctx, Grade{ID: newID(ng.ID), Name: ng.Name})
	if err != nil {
		return Grade{}, trapExists(err)
	}
	return grade, nil
}

func (svc *service) QueryGrades(ctx context.Context) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx)
}

func (svc *service) GetGrade(ctx context.Context, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, core.CleanString(id))
}

func (svc *service) UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error) {
	return svc.repo.UpdateGrade(ctx, Grade{ID: core.CleanString(id), Name: ug.Name})
}

func (svc *service) DeleteGrade(ctx context.Context, id string) error {
	return svc.repo.DeleteGrade(ctx, core.CleanString(id))
}

// Subjects

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	subject, err := svc.repo.CreateSubject(ctx, Subject{
		ID:      newID(ns.ID),
		GradeID: ns.GradeID,
		Name:    ns.Name,
		PDFURI:  ns.PDFURI,
	})
	if err != nil {
		return Subject{}, trapExists(err)
	}
	return subject, nil
}

func (svc *service) QuerySubjects(ctx context.Context, gradeID string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, SubjectFilter{GradeID: core.CleanString(gradeID)})
}

func (svc *service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, core.CleanString(id))
}

func (svc *service) UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	return svc.repo.UpdateSubject(ctx, Subject{
		ID:      core.CleanString(id),
		GradeID: us.GradeID,
		Name:    us.Name,
		PDFURI:  us.PDFURI,
	})
}

func (svc *service) SetSubjectPDF(ctx context.Context, id, uri string) (Subject, error) {
	subject, err := svc.repo.GetSubject(ctx, core.CleanString(id))
	if err != nil {
		return Subject{}, err
	}
	uri = core.CleanString(uri)
	if uri == "" {
		return Subject{}, core.NewValidationError(nil, core.FieldError{Field: "pdfUri", Error: "this field is required"})
	}
	subject.PDFURI = &uri
	return svc.repo.UpdateSubject(ctx, subject)
}

func (svc *service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, core.CleanString(id))
}

func (svc *service) ParentGrade(ctx context.Context, subjectID string) (Grade, error) {
	subject, err := svc.repo.GetSubject(ctx, core.CleanString(subjectID))
	if err != nil {
		return Grade{}, err
	}
	return svc.repo.GetGrade(ctx, subject.GradeID)
}

// Topics

func (svc *service) CreateTopic(ctx context.Context, nt NewTopic) (Topic, error) {
	topic, err := svc.repo.CreateTopic(ctx, Topic{
		ID:        newID(nt.ID),
		SubjectID: nt.SubjectID,
		Name:      nt.Name,
		Content:   nt.Content,
		Images:    nt.Images,
	})
	if err != nil {
		return Topic{}, trapExists(err)
	}
	return topic, nil
}

func (svc *service) QueryTopics(ctx context.Context, filter TopicFilter) ([]Topic, error) {
	filter.Clean()
	return svc.repo.QueryTopics(ctx, filter)
}

func (svc *service) GetTopic(ctx context.Context, id string) (Topic, error) {
	return svc.repo.GetTopic(ctx, core.CleanString(id))
}

func (svc *service) UpdateTopic(ctx context.Context, id string, ut UpdateTopic) (Topic, error) {
	return svc.repo.UpdateTopic(ctx, Topic{
		ID:        core.CleanString(id),
		SubjectID: ut.SubjectID,
		Name:      ut.Name,
		Content:   ut.Content,
		Images:    ut.Images,
	}, ut.Images != nil)
}

func (svc *service) DeleteTopic(ctx context.Context, id string) error {
	return svc.repo.DeleteTopic(ctx, core.CleanString(id))
}
