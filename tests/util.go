package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/storage/database"
)

// TestDatabaseURLEnv names the variable holding the Postgres URL used by database-backed tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// PrepareDB opens the test database, migrates it and empties the catalog.
// The test is skipped when no test database is configured.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv(TestDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}

	db, err := database.OpenURL(context.Background(), url)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

// ResetDB deletes every catalog row.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	if _, err := db.Exec(`TRUNCATE grades, subjects, topics, topic_images`); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateGrade(t *testing.T, repo catalog.Repository, id, name string) catalog.Grade {
	t.Helper()
	grade, err := repo.CreateGrade(context.Background(), catalog.Grade{ID: id, Name: name})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return grade
}

func CreateSubject(t *testing.T, repo catalog.Repository, id, gradeID, name string, pdfURI ...string) catalog.Subject {
	t.Helper()
	subject := catalog.Subject{ID: id, GradeID: gradeID, Name: name}
	if len(pdfURI) > 0 {
		subject.PDFURI = &pdfURI[0]
	}
	subject, err := repo.CreateSubject(context.Background(), subject)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subject
}

func CreateTopic(t *testing.T, repo catalog.Repository, id, subjectID, name string, images ...catalog.TopicImage) catalog.Topic {
	t.Helper()
	topic, err := repo.CreateTopic(context.Background(), catalog.Topic{ID: id, SubjectID: subjectID, Name: name, Images: images})
	if err != nil {
		t.Fatalf("CreateTopic() failed: %v", err)
	}
	return topic
}
