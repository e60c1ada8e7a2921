package progress

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/normalize"
)

// CompleteLessonResult describes the outcome of a completion.
type CompleteLessonResult struct {
	Passed           bool
	AlreadyCompleted bool
	AwardedXP        int
	XP               int
}

// CompleteLesson records a lesson attempt. A lesson missing from the loaded
// catalog yields domain.ErrNotFound and changes nothing. Otherwise the lesson
// always enters the completed set. A score at or above the pass threshold awards the lesson
// reward, subject to the award policy. The remote progress record is
// upserted afterwards; a failed write is only logged.
func (a *Aggregator) CompleteLesson(ctx context.Context, input CompleteLessonInput) (CompleteLessonResult, error) {
	if err := input.Validate(); err != nil {
		return CompleteLessonResult{}, err
	}
	lessonID := strings.TrimSpace(input.LessonID)
	attempts := input.Attempts
	if attempts < 1 {
		attempts = 1
	}

	lesson, ok := a.LessonByID(lessonID)
	if !ok {
		return CompleteLessonResult{}, fmt.Errorf("complete lesson %q: %w", lessonID, domain.ErrNotFound)
	}
	reward := lesson.XPReward

	var (
		res    = CompleteLessonResult{Passed: input.ScorePercent >= a.opts.PassThreshold}
		userID uuid.UUID
		signed bool
	)
	a.update(func() {
		res.AlreadyCompleted = a.progress.IsCompleted(lessonID)
		a.progress = a.progress.WithCompleted(lessonID)
		res.XP = a.progress.XP
		if a.identity != nil {
			userID, signed = a.identity.UserID, true
		}
	})

	if res.Passed && (a.opts.AwardPolicy == domain.AwardEveryPass || !res.AlreadyCompleted) {
		res.AwardedXP = reward
		res.XP = a.AddXP(ctx, reward)
	}

	if signed {
		a.upsertProgress(context.WithoutCancel(ctx), userID, lessonID, input.ScorePercent, attempts)
	}

	a.log.InfoContext(ctx, "lesson completed",
		slog.String("lesson_id", lessonID),
		slog.Int("score", input.ScorePercent),
		slog.Bool("passed", res.Passed),
		slog.Int("awarded_xp", res.AwardedXP),
	)
	return res, nil
}

// upsertProgress updates the stored record for (user, lesson) with its
// attempts incremented, or inserts one with the given attempts.
func (a *Aggregator) upsertProgress(ctx context.Context, userID uuid.UUID, lessonID string, score, attempts int) {
	logFailure := func(op string, err error) {
		a.log.WarnContext(ctx, "progress write failed, keeping local value",
			slog.String("table", domain.TableUserProgress.String()),
			slog.String("op", op),
			slog.String("lesson_id", lessonID),
			slog.String("error", err.Error()),
		)
	}

	rows, err := a.gw.Query(ctx, domain.TableUserProgress, domain.Filter{
		"user_id":   userID.String(),
		"lesson_id": lessonID,
	})
	if err != nil {
		logFailure("query", err)
		return
	}

	now := a.clock().UTC()
	if len(rows) > 0 {
		stored, _ := normalize.Int(rows[0], "attempts")
		_, err = a.gw.Update(ctx, domain.TableUserProgress, normalize.String(rows[0], "id"), domain.Row{
			"is_completed": true,
			"score":        score,
			"attempts":     stored + 1,
			"completed_at": now,
		})
		if err != nil {
			logFailure("update", err)
		}
		return
	}

	_, err = a.gw.Insert(ctx, domain.TableUserProgress, domain.Row{
		"user_id":      userID.String(),
		"lesson_id":    lessonID,
		"is_completed": true,
		"score":        score,
		"attempts":     attempts,
		"completed_at": now,
	})
	if err != nil {
		logFailure("insert", err)
	}
}
