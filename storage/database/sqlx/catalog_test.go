package sqlxrepos

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maktab/core/catalog"
	"github.com/trezcool/maktab/tests"
)

func TestCatalogRepository_Subjects(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewCatalogRepository(db)

	g1 := testutil.CreateGrade(t, repo, "g1", "Синфи 9")
	testutil.CreateGrade(t, repo, "g2", "Синфи 10")

	algebra := testutil.CreateSubject(t, repo, "s1", "g1", "Алгебра")
	assert.Nil(t, algebra.PDFURI)
	physics := testutil.CreateSubject(t, repo, "s2", "g2", "Физика", "files/phys")

	got, err := repo.QuerySubjects(ctx, catalog.SubjectFilter{GradeID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Subject{algebra}, got)

	got, err = repo.QuerySubjects(ctx, catalog.SubjectFilter{})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Subject{algebra, physics}, got)

	_, err = repo.CreateSubject(ctx, catalog.Subject{ID: "s3", GradeID: "nope", Name: "Химия"})
	assert.Equal(t, catalog.ErrParentNotFound, errors.Cause(err))
	_, err = repo.CreateSubject(ctx, catalog.Subject{ID: "s1", GradeID: "g1", Name: "Алгебра"})
	assert.Equal(t, catalog.ErrAlreadyExists, errors.Cause(err))

	t.Run("update keeps pdf", func(t *testing.T) {
		s, err := repo.UpdateSubject(ctx, catalog.Subject{ID: "s2", GradeID: "g2", Name: "Физикаи 10"})
		require.NoError(t, err)
		require.NotNil(t, s.PDFURI)
		assert.Equal(t, "files/phys", *s.PDFURI)
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := repo.UpdateSubject(ctx, catalog.Subject{ID: "nope", GradeID: "g2", Name: "X"})
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))
	})

	t.Run("grade delete cascades", func(t *testing.T) {
		testutil.CreateTopic(t, repo, "t1", "s1", "Касрҳо", catalog.TopicImage{Data: "YQ==", MIMEType: "image/png"})
		require.NoError(t, repo.DeleteGrade(ctx, g1.ID))

		_, err := repo.GetSubject(ctx, "s1")
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))
		_, err = repo.GetTopic(ctx, "t1")
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))

		var n int
		require.NoError(t, db.Get(&n, `SELECT count(*) FROM topic_images`))
		assert.Zero(t, n)
	})

	assert.Equal(t, catalog.ErrNotFound, errors.Cause(repo.DeleteGrade(ctx, "g1")))
}

func TestCatalogRepository_Topics(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewCatalogRepository(db)

	testutil.CreateGrade(t, repo, "g1", "Синфи 5")
	testutil.CreateSubject(t, repo, "s1", "g1", "Математика")

	topic := testutil.CreateTopic(t, repo, "t1", "s1", "Касрҳо",
		catalog.TopicImage{Data: "Yw==", MIMEType: "image/png", Order: 2},
		catalog.TopicImage{Data: "YQ==", MIMEType: "image/png", Order: 1},
		catalog.TopicImage{Data: "ZA==", MIMEType: "image/png", Order: 2},
	)
	testutil.CreateTopic(t, repo, "t2", "s1", "Геометрия")

	got, err := repo.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic, got)
	assert.Equal(t, "YQ==", got.Images[0].Data)
	assert.Equal(t, "ZA==", got.Images[2].Data)

	topics, err := repo.QueryTopics(ctx, catalog.TopicFilter{SubjectID: "s1", Search: "КАСР"})
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "t1", topics[0].ID)
	assert.Nil(t, topics[0].Images)

	t.Run("failed insert leaves no images", func(t *testing.T) {
		_, err := repo.CreateTopic(ctx, catalog.Topic{
			ID: "t3", SubjectID: "s1", Name: "X",
			Images: []catalog.TopicImage{{Data: "YQ==", MIMEType: string(make([]byte, 200))}},
		})
		require.Error(t, err)

		_, err = repo.GetTopic(ctx, "t3")
		assert.Equal(t, catalog.ErrNotFound, errors.Cause(err))
	})

	t.Run("replace images", func(t *testing.T) {
		updated, err := repo.UpdateTopic(ctx, catalog.Topic{ID: "t1", SubjectID: "s1", Name: "Касрҳо"}, true)
		require.NoError(t, err)
		assert.Empty(t, updated.Images)
	})
}
