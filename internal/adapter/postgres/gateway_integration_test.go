//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lingua-backend/internal/adapter/postgres"
	"github.com/heartmarshall/lingua-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/service/progress"
	"github.com/heartmarshall/lingua-backend/pkg/ctxutil"
)

func TestGateway_AggregatorRoundTrip(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	userID := testhelper.SeedUser(t, pool, "admin")
	lessonID := testhelper.SeedLesson(t, pool, "vocabulario", 1, 50)
	questionID := testhelper.SeedQuestion(t, pool, lessonID, []string{"rojo", "azul"}, "azul")

	feedCtx, stopFeed := context.WithCancel(context.Background())
	t.Cleanup(stopFeed)
	feed := postgres.NewChangeFeed(log, pool, "catalog_changes")
	go func() { _ = feed.Run(feedCtx) }()

	gw := postgres.NewGateway(log, pool, feed)
	agg := progress.NewAggregator(log, gw, progress.DefaultOptions())
	t.Cleanup(func() { _ = agg.Close() })

	ctx := ctxutil.WithRole(ctxutil.WithUserID(context.Background(), userID), "student")
	require.NoError(t, agg.Start(ctx))

	identity, ok := agg.Identity()
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, identity.Role, "stored role wins over the token claim")

	lesson, ok := agg.LessonByID(lessonID)
	require.True(t, ok, "seeded lesson must be loaded")
	assert.Equal(t, domain.AreaVocabulario, lesson.AreaID)
	assert.Len(t, agg.Snapshot().Areas, 3)

	correct, found := agg.CheckAnswer(questionID, "Azul")
	require.True(t, found)
	assert.True(t, correct)

	res, err := agg.CompleteLesson(ctx, progress.CompleteLessonInput{LessonID: lessonID, ScorePercent: 80})
	require.NoError(t, err)
	assert.Equal(t, 50, res.XP)

	var totalXP int
	require.NoError(t, pool.QueryRow(ctx, `SELECT total_xp FROM users WHERE id = $1`, userID).Scan(&totalXP))
	assert.Equal(t, 50, totalXP)

	var attempts int
	var completed bool
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT attempts, is_completed FROM user_progress WHERE user_id = $1 AND lesson_id = $2`,
		userID, lessonID,
	).Scan(&attempts, &completed))
	assert.Equal(t, 1, attempts)
	assert.True(t, completed)

	_, err = agg.CompleteLesson(ctx, progress.CompleteLessonInput{LessonID: lessonID, ScorePercent: 90})
	require.NoError(t, err)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT attempts FROM user_progress WHERE user_id = $1 AND lesson_id = $2`, userID, lessonID,
	).Scan(&attempts))
	assert.Equal(t, 2, attempts)

	// A catalog write made outside the aggregator reaches it through the feed.
	newLessonID := testhelper.SeedLesson(t, pool, "gramatica", 1, 30)
	require.Eventually(t, func() bool {
		_, _ = pool.Exec(context.Background(), `UPDATE lessons SET updated_at = now() WHERE id = $1`, newLessonID)
		_, ok := agg.LessonByID(newLessonID)
		return ok
	}, 10*time.Second, 100*time.Millisecond)

	// Reload keeps progress from the users row.
	require.NoError(t, agg.LoadUserData(ctx))
	assert.Equal(t, 100, agg.Progress().XP)
	assert.True(t, agg.Progress().IsCompleted(lessonID))
}

func TestGateway_DeleteMissingRow(t *testing.T) {
	pool := testhelper.SetupTestDB(t)
	gw := postgres.NewGateway(slog.New(slog.NewTextHandler(io.Discard, nil)), pool, nil)

	err := gw.Delete(context.Background(), domain.TableLessons, "00000000-0000-0000-0000-000000000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = gw.Insert(context.Background(), domain.TableLessons, domain.Row{"title": "x", "area": "klingon"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "foreign key violation maps to not_found")
}
