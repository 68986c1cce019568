package inmemdb

import (
	"context"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

// NewCatalogRepository returns a catalog.Repository backed by db.
// The exec argument of every method is ignored.
func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Grades

func (repo *catalogRepository) CreateGrade(_ context.Context, grade catalog.Grade, _ ...core.DBExecutor) (catalog.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tbl := repo.db.grades
	if _, ok := tbl.rows[grade.ID]; ok {
		return catalog.Grade{}, catalog.ErrAlreadyExists
	}
	tbl.rows[grade.ID] = &grade
	tbl.order = append(tbl.order, grade.ID)
	return grade, nil
}

func (repo *catalogRepository) QueryGrades(_ context.Context, _ ...core.DBExecutor) ([]catalog.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.grades
	grades := make([]catalog.Grade, 0, len(tbl.order))
	for _, id := range tbl.order {
		grades = append(grades, *tbl.rows[id])
	}
	return grades, nil
}

func (repo *catalogRepository) GetGrade(_ context.Context, id string, _ ...core.DBExecutor) (catalog.Grade, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grade, ok := repo.db.grades.rows[id]; ok {
		return *grade, nil
	}
	return catalog.Grade{}, catalog.ErrNotFound
}

func (repo *catalogRepository) UpdateGrade(_ context.Context, grade catalog.Grade, _ ...core.DBExecutor) (catalog.Grade, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.grades.rows[grade.ID]
	if !ok {
		return catalog.Grade{}, catalog.ErrNotFound
	}
	orig.Name = grade.Name
	return *orig, nil
}

func (repo *catalogRepository) DeleteGrade(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tbl := repo.db.grades
	if _, ok := tbl.rows[id]; !ok {
		return catalog.ErrNotFound
	}
	for _, sid := range append([]string(nil), repo.db.subjects.order...) {
		if repo.db.subjects.rows[sid].GradeID == id {
			repo.deleteSubject(sid)
		}
	}
	delete(tbl.rows, id)
	tbl.order = removeKey(tbl.order, id)
	return nil
}

// Subjects

func (repo *catalogRepository) CreateSubject(_ context.Context, subject catalog.Subject, _ ...core.DBExecutor) (catalog.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.grades.rows[subject.GradeID]; !ok {
		return catalog.Subject{}, catalog.ErrParentNotFound
	}
	tbl := repo.db.subjects
	if _, ok := tbl.rows[subject.ID]; ok {
		return catalog.Subject{}, catalog.ErrAlreadyExists
	}
	subject.PDFURI = copyString(subject.PDFURI)
	tbl.rows[subject.ID] = &subject
	tbl.order = append(tbl.order, subject.ID)
	return subject, nil
}

func (repo *catalogRepository) QuerySubjects(_ context.Context, filter catalog.SubjectFilter, _ ...core.DBExecutor) ([]catalog.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.subjects
	subjects := make([]catalog.Subject, 0, len(tbl.order))
	for _, id := range tbl.order {
		subject := *tbl.rows[id]
		if filter.GradeID == "" || subject.GradeID == filter.GradeID {
			subject.PDFURI = copyString(subject.PDFURI)
			subjects = append(subjects, subject)
		}
	}
	return subjects, nil
}

func (repo *catalogRepository) GetSubject(_ context.Context, id string, _ ...core.DBExecutor) (catalog.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if subject, ok := repo.db.subjects.rows[id]; ok {
		s := *subject
		s.PDFURI = copyString(s.PDFURI)
		return s, nil
	}
	return catalog.Subject{}, catalog.ErrNotFound
}

func (repo *catalogRepository) UpdateSubject(_ context.Context, subject catalog.Subject, _ ...core.DBExecutor) (catalog.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.subjects.rows[subject.ID]
	if !ok {
		return catalog.Subject{}, catalog.ErrNotFound
	}
	if _, ok := repo.db.grades.rows[subject.GradeID]; !ok {
		return catalog.Subject{}, catalog.ErrParentNotFound
	}
	orig.GradeID = subject.GradeID
	orig.Name = subject.Name
	// only overwrite the textbook when a new one is given
	if subject.PDFURI != nil {
		orig.PDFURI = copyString(subject.PDFURI)
	}
	s := *orig
	s.PDFURI = copyString(s.PDFURI)
	return s, nil
}

func (repo *catalogRepository) DeleteSubject(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects.rows[id]; !ok {
		return catalog.ErrNotFound
	}
	repo.deleteSubject(id)
	return nil
}

// deleteSubject removes the subject and its topics. Caller must hold the write lock.
func (repo *catalogRepository) deleteSubject(id string) {
	for _, tid := range append([]string(nil), repo.db.topics.order...) {
		if repo.db.topics.rows[tid].SubjectID == id {
			repo.deleteTopic(tid)
		}
	}
	delete(repo.db.subjects.rows, id)
	repo.db.subjects.order = removeKey(repo.db.subjects.order, id)
}

// Topics

func (repo *catalogRepository) CreateTopic(_ context.Context, topic catalog.Topic, _ ...core.DBExecutor) (catalog.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.subjects.rows[topic.SubjectID]; !ok {
		return catalog.Topic{}, catalog.ErrParentNotFound
	}
	tbl := repo.db.topics
	if _, ok := tbl.rows[topic.ID]; ok {
		return catalog.Topic{}, catalog.ErrAlreadyExists
	}
	topic = copyTopic(topic)
	tbl.rows[topic.ID] = &topic
	tbl.order = append(tbl.order, topic.ID)
	return withSortedImages(topic), nil
}

func (repo *catalogRepository) QueryTopics(_ context.Context, filter catalog.TopicFilter, _ ...core.DBExecutor) ([]catalog.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tbl := repo.db.topics
	topics := make([]catalog.Topic, 0)
	for _, id := range tbl.order {
		topic := tbl.rows[id]
		if filter.SubjectID != "" && topic.SubjectID != filter.SubjectID {
			continue
		}
		if !catalog.MatchTopicName(topic.Name, filter.Search) {
			continue
		}
		t := copyTopic(*topic)
		t.Images = nil
		topics = append(topics, t)
	}
	return topics, nil
}

func (repo *catalogRepository) GetTopic(_ context.Context, id string, _ ...core.DBExecutor) (catalog.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if topic, ok := repo.db.topics.rows[id]; ok {
		return withSortedImages(copyTopic(*topic)), nil
	}
	return catalog.Topic{}, catalog.ErrNotFound
}

func (repo *catalogRepository) UpdateTopic(_ context.Context, topic catalog.Topic, replaceImages bool, _ ...core.DBExecutor) (catalog.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.topics.rows[topic.ID]
	if !ok {
		return catalog.Topic{}, catalog.ErrNotFound
	}
	if _, ok := repo.db.subjects.rows[topic.SubjectID]; !ok {
		return catalog.Topic{}, catalog.ErrParentNotFound
	}
	topic = copyTopic(topic)
	orig.SubjectID = topic.SubjectID
	orig.Name = topic.Name
	orig.Content = topic.Content
	if replaceImages {
		orig.Images = topic.Images
	}
	return withSortedImages(copyTopic(*orig)), nil
}

func (repo *catalogRepository) DeleteTopic(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.topics.rows[id]; !ok {
		return catalog.ErrNotFound
	}
	repo.deleteTopic(id)
	return nil
}

func (repo *catalogRepository) deleteTopic(id string) {
	delete(repo.db.topics.rows, id)
	repo.db.topics.order = removeKey(repo.db.topics.order, id)
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTopic(topic catalog.Topic) catalog.Topic {
	topic.Content = copyString(topic.Content)
	if topic.Images != nil {
		topic.Images = append([]catalog.TopicImage{}, topic.Images...)
	}
	return topic
}

func withSortedImages(topic catalog.Topic) catalog.Topic {
	if len(topic.Images) > 0 {
		topic.Images = catalog.SortImages(topic.Images)
	}
	return topic
}
