package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/catalog"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
	pqAdminShutdown       = "57P01"
	pqCrashShutdown       = "57P02"

	pqConnectionException = "08"
)

type (
	gradeRow struct {
		ID   string `db:"id"`
		Name string `db:"name"`
	}

	subjectRow struct {
		ID      string      `db:"id"`
		GradeID string      `db:"grade_id"`
		Name    string      `db:"name"`
		PDFURI  null.String `db:"pdf_uri"`
	}

	topicRow struct {
		ID        string      `db:"id"`
		SubjectID string      `db:"subject_id"`
		Name      string      `db:"name"`
		Content   null.String `db:"content"`
	}

	imageRow struct {
		Data     string `db:"data"`
		MIMEType string `db:"mime_type"`
		Order    int    `db:"order"`
	}
)

func (r gradeRow) toGrade() catalog.Grade {
	return catalog.Grade{ID: r.ID, Name: r.Name}
}

func (r subjectRow) toSubject() catalog.Subject {
	return catalog.Subject{ID: r.ID, GradeID: r.GradeID, Name: r.Name, PDFURI: r.PDFURI.Ptr()}
}

func (r topicRow) toTopic() catalog.Topic {
	return catalog.Topic{ID: r.ID, SubjectID: r.SubjectID, Name: r.Name, Content: r.Content.Ptr()}
}

type catalogRepository struct {
	db core.DB
}

var _ catalog.Repository = (*catalogRepository)(nil)

func NewCatalogRepository(db core.DB) catalog.Repository {
	return &catalogRepository{db: db}
}

func (repo *catalogRepository) getExec(exec ...core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return repo.db
}

// trapErr maps driver errors to catalog errors.
// A lost database connection is reported as a shutdown error.
func trapErr(err error) error {
	if err == nil {
		return nil
	}
	cause := errors.Cause(err)
	if cause == sql.ErrNoRows {
		return catalog.ErrNotFound
	}
	if cause == driver.ErrBadConn {
		return core.NewShutdownError("database connection lost: " + err.Error())
	}
	if pqErr, ok := cause.(*pq.Error); ok {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return catalog.ErrParentNotFound
		case pqUniqueViolation:
			return catalog.ErrAlreadyExists
		case pqAdminShutdown, pqCrashShutdown:
			return core.NewShutdownError("database shut down: " + err.Error())
		}
		if pqErr.Code.Class() == pqConnectionException {
			return core.NewShutdownError("database connection lost: " + err.Error())
		}
	}
	return err
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// withTx runs fn in exec when given, otherwise in a new transaction.
func (repo *catalogRepository) withTx(ctx context.Context, fn func(core.DBExecutor) error, exec ...core.DBExecutor) (err error) {
	if len(exec) > 0 && exec[0] != nil {
		return fn(exec[0])
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Grades

func (repo *catalogRepository) CreateGrade(ctx context.Context, grade catalog.Grade, exec ...core.DBExecutor) (catalog.Grade, error) {
	q := `INSERT INTO grades (id, name) VALUES ($1, $2)`
	if _, err := repo.getExec(exec...).ExecContext(ctx, q, grade.ID, grade.Name); err != nil {
		return catalog.Grade{}, trapErr(err)
	}
	return grade, nil
}

func (repo *catalogRepository) QueryGrades(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Grade, error) {
	var rows []gradeRow
	q := `SELECT id, name FROM grades ORDER BY created_at, id`
	if err := repo.getExec(exec...).SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]catalog.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toGrade())
	}
	return grades, nil
}

func (repo *catalogRepository) GetGrade(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Grade, error) {
	var row gradeRow
	q := `SELECT id, name FROM grades WHERE id = $1`
	if err := repo.getExec(exec...).GetContext(ctx, &row, q, id); err != nil {
		return catalog.Grade{}, trapErr(err)
	}
	return row.toGrade(), nil
}

func (repo *catalogRepository) UpdateGrade(ctx context.Context, grade catalog.Grade, exec ...core.DBExecutor) (catalog.Grade, error) {
	var row gradeRow
	q := `UPDATE grades SET name = $2 WHERE id = $1 RETURNING id, name`
	if err := repo.getExec(exec...).GetContext(ctx, &row, q, grade.ID, grade.Name); err != nil {
		return catalog.Grade{}, trapErr(err)
	}
	return row.toGrade(), nil
}

func (repo *catalogRepository) DeleteGrade(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec...).ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return trapErr(err)
	}
	return checkAffected(res)
}

// Subjects

const subjectCols = `id, grade_id, name, pdf_uri`

func (repo *catalogRepository) CreateSubject(ctx context.Context, subject catalog.Subject, exec ...core.DBExecutor) (catalog.Subject, error) {
	q := `INSERT INTO subjects (id, grade_id, name, pdf_uri) VALUES ($1, $2, $3, $4)`
	_, err := repo.getExec(exec...).ExecContext(ctx, q, subject.ID, subject.GradeID, subject.Name, null.StringFromPtr(subject.PDFURI))
	if err != nil {
		return catalog.Subject{}, trapErr(err)
	}
	return subject, nil
}

func (repo *catalogRepository) QuerySubjects(ctx context.Context, filter catalog.SubjectFilter, exec ...core.DBExecutor) ([]catalog.Subject, error) {
	var rows []subjectRow
	q := `SELECT ` + subjectCols + ` FROM subjects WHERE ($1::varchar = '' OR grade_id = $1::varchar) ORDER BY created_at, id`
	if err := repo.getExec(exec...).SelectContext(ctx, &rows, q, filter.GradeID); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]catalog.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.toSubject())
	}
	return subjects, nil
}

func (repo *catalogRepository) GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Subject, error) {
	var row subjectRow
	q := `SELECT ` + subjectCols + ` FROM subjects WHERE id = $1`
	if err := repo.getExec(exec...).GetContext(ctx, &row, q, id); err != nil {
		return catalog.Subject{}, trapErr(err)
	}
	return row.toSubject(), nil
}

func (repo *catalogRepository) UpdateSubject(ctx context.Context, subject catalog.Subject, exec ...core.DBExecutor) (catalog.Subject, error) {
	var row subjectRow
	q := `UPDATE subjects SET grade_id = $2, name = $3, pdf_uri = COALESCE($4, pdf_uri)
		WHERE id = $1 RETURNING ` + subjectCols
	err := repo.getExec(exec...).GetContext(ctx, &row, q, subject.ID, subject.GradeID, subject.Name, null.StringFromPtr(subject.PDFURI))
	if err != nil {
		return catalog.Subject{}, trapErr(err)
	}
	return row.toSubject(), nil
}

func (repo *catalogRepository) DeleteSubject(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec...).ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return trapErr(err)
	}
	return checkAffected(res)
}

// Topics

const topicCols = `id, subject_id, name, content`

func insertImages(ctx context.Context, exec core.DBExecutor, topicID string, images []catalog.TopicImage) error {
	q := `INSERT INTO topic_images (id, topic_id, data, mime_type, "order", position) VALUES ($1, $2, $3, $4, $5, $6)`
	for i, img := range images {
		if _, err := exec.ExecContext(ctx, q, uuid.New().String(), topicID, img.Data, img.MIMEType, img.Order, i); err != nil {
			return errors.Wrap(err, "inserting topic image")
		}
	}
	return nil
}

func queryImages(ctx context.Context, exec core.DBExecutor, topicID string) ([]catalog.TopicImage, error) {
	var rows []imageRow
	q := `SELECT data, mime_type, "order" FROM topic_images WHERE topic_id = $1 ORDER BY "order", position`
	if err := exec.SelectContext(ctx, &rows, q, topicID); err != nil {
		return nil, errors.Wrap(err, "querying topic images")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	images := make([]catalog.TopicImage, 0, len(rows))
	for _, r := range rows {
		images = append(images, catalog.TopicImage{Data: r.Data, MIMEType: r.MIMEType, Order: r.Order})
	}
	return images, nil
}

func (repo *catalogRepository) CreateTopic(ctx context.Context, topic catalog.Topic, exec ...core.DBExecutor) (catalog.Topic, error) {
	err := repo.withTx(ctx, func(ex core.DBExecutor) error {
		q := `INSERT INTO topics (id, subject_id, name, content) VALUES ($1, $2, $3, $4)`
		if _, err := ex.ExecContext(ctx, q, topic.ID, topic.SubjectID, topic.Name, null.StringFromPtr(topic.Content)); err != nil {
			return err
		}
		return insertImages(ctx, ex, topic.ID, topic.Images)
	}, exec...)
	if err != nil {
		return catalog.Topic{}, trapErr(err)
	}
	if len(topic.Images) > 0 {
		topic.Images = catalog.SortImages(topic.Images)
	}
	return topic, nil
}

func (repo *catalogRepository) QueryTopics(ctx context.Context, filter catalog.TopicFilter, exec ...core.DBExecutor) ([]catalog.Topic, error) {
	var rows []topicRow
	q := `SELECT ` + topicCols + ` FROM topics
		WHERE ($1::varchar = '' OR subject_id = $1::varchar) AND ($2::text = '' OR strpos(lower(name), lower($2::text)) > 0)
		ORDER BY created_at, id`
	if err := repo.getExec(exec...).SelectContext(ctx, &rows, q, filter.SubjectID, filter.Search); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]catalog.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, r.toTopic())
	}
	return topics, nil
}

func (repo *catalogRepository) GetTopic(ctx context.Context, id string, exec ...core.DBExecutor) (catalog.Topic, error) {
	ex := repo.getExec(exec...)
	var row topicRow
	q := `SELECT ` + topicCols + ` FROM topics WHERE id = $1`
	if err := ex.GetContext(ctx, &row, q, id); err != nil {
		return catalog.Topic{}, trapErr(err)
	}
	topic := row.toTopic()
	images, err := queryImages(ctx, ex, id)
	if err != nil {
		return catalog.Topic{}, err
	}
	topic.Images = images
	return topic, nil
}

func (repo *catalogRepository) UpdateTopic(ctx context.Context, topic catalog.Topic, replaceImages bool, exec ...core.DBExecutor) (catalog.Topic, error) {
	var updated catalog.Topic
	err := repo.withTx(ctx, func(ex core.DBExecutor) error {
		var row topicRow
		q := `UPDATE topics SET subject_id = $2, name = $3, content = $4 WHERE id = $1 RETURNING ` + topicCols
		err := ex.GetContext(ctx, &row, q, topic.ID, topic.SubjectID, topic.Name, null.StringFromPtr(topic.Content))
		if err != nil {
			return err
		}
		if replaceImages {
			if _, err = ex.ExecContext(ctx, `DELETE FROM topic_images WHERE topic_id = $1`, topic.ID); err != nil {
				return errors.Wrap(err, "deleting topic images")
			}
			if err = insertImages(ctx, ex, topic.ID, topic.Images); err != nil {
				return err
			}
		}
		updated = row.toTopic()
		updated.Images, err = queryImages(ctx, ex, topic.ID)
		return err
	}, exec...)
	if err != nil {
		return catalog.Topic{}, trapErr(err)
	}
	return updated, nil
}

func (repo *catalogRepository) DeleteTopic(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec...).ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return trapErr(err)
	}
	return checkAffected(res)
}
