package progress

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/normalize"
)

// Catalog edits are strict: authorization and validation run before any
// remote call, and local state changes only after the remote write succeeds.

func (a *Aggregator) requireAdmin() error {
	identity, ok := a.Identity()
	if !ok || !identity.IsAdmin() {
		return domain.NewAuthorizationError("role", "admin role required")
	}
	return nil
}

// AddLevel creates a level.
func (a *Aggregator) AddLevel(ctx context.Context, input AddLevelInput) (domain.Level, error) {
	if err := a.requireAdmin(); err != nil {
		return domain.Level{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.Level{}, err
	}

	row, err := a.gw.Insert(ctx, domain.TableLevels, domain.Row{
		"area":        strings.ToLower(strings.TrimSpace(input.AreaID)),
		"name":        strings.TrimSpace(input.Name),
		"order_index": input.Order,
	})
	if err != nil {
		return domain.Level{}, fmt.Errorf("add level: %w", err)
	}

	var level domain.Level
	a.update(func() {
		level = normalize.Level(row, a.progress.LevelNumber())
		levels := append(slices.Clone(a.levels), level)
		slices.SortStableFunc(levels, func(x, y domain.Level) int { return cmp.Compare(x.Order, y.Order) })
		a.levels = levels
	})

	a.log.InfoContext(ctx, "level added", slog.String("level_id", level.ID))
	return level, nil
}

// AddLesson creates a lesson. An inactive lesson is stored remotely but not
// shown in the local catalog.
func (a *Aggregator) AddLesson(ctx context.Context, input AddLessonInput) (domain.Lesson, error) {
	if err := a.requireAdmin(); err != nil {
		return domain.Lesson{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.Lesson{}, err
	}

	xp := domain.DefaultLessonXP
	if input.XPReward != nil {
		xp = *input.XPReward
	}
	lessonType := domain.LessonTypeReading
	if input.Type != "" {
		lessonType = domain.LessonType(strings.ToLower(strings.TrimSpace(input.Type)))
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	row, err := a.gw.Insert(ctx, domain.TableLessons, domain.Row{
		"title":       strings.TrimSpace(input.Title),
		"area":        strings.ToLower(strings.TrimSpace(input.AreaID)),
		"level":       input.Level,
		"type":        string(lessonType),
		"xp_reward":   xp,
		"order_index": input.Order,
		"description": strings.TrimSpace(input.Description),
		"is_active":   active,
	})
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("add lesson: %w", err)
	}

	lesson := normalize.Lesson(row)
	a.update(func() { a.lessons = upsertLesson(a.lessons, row) })

	a.log.InfoContext(ctx, "lesson added", slog.String("lesson_id", lesson.ID))
	return lesson, nil
}

// UpdateLesson applies a partial update to a lesson.
func (a *Aggregator) UpdateLesson(ctx context.Context, input UpdateLessonInput) (domain.Lesson, error) {
	if err := a.requireAdmin(); err != nil {
		return domain.Lesson{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.Lesson{}, err
	}

	patch := domain.Row{}
	if input.Title != nil {
		patch["title"] = strings.TrimSpace(*input.Title)
	}
	if input.AreaID != nil {
		patch["area"] = strings.ToLower(strings.TrimSpace(*input.AreaID))
	}
	if input.Level != nil {
		patch["level"] = *input.Level
	}
	if input.Type != nil {
		patch["type"] = strings.ToLower(strings.TrimSpace(*input.Type))
	}
	if input.XPReward != nil {
		patch["xp_reward"] = *input.XPReward
	}
	if input.Order != nil {
		patch["order_index"] = *input.Order
	}
	if input.Description != nil {
		patch["description"] = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		patch["is_active"] = *input.IsActive
	}

	id := strings.TrimSpace(input.ID)
	row, err := a.gw.Update(ctx, domain.TableLessons, id, patch)
	if err != nil {
		return domain.Lesson{}, fmt.Errorf("update lesson: %w", err)
	}

	lesson := normalize.Lesson(row)
	a.update(func() { a.lessons = upsertLesson(a.lessons, row) })

	a.log.InfoContext(ctx, "lesson updated", slog.String("lesson_id", id))
	return lesson, nil
}

// DeleteLesson removes a lesson and its questions.
func (a *Aggregator) DeleteLesson(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id", "required")
	}

	if err := a.gw.Delete(ctx, domain.TableLessons, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}

	a.update(func() {
		a.lessons = slices.DeleteFunc(slices.Clone(a.lessons), func(l domain.Lesson) bool { return l.ID == id })
		a.questions = slices.DeleteFunc(slices.Clone(a.questions), func(q domain.Question) bool { return q.LessonID == id })
	})

	a.log.InfoContext(ctx, "lesson deleted", slog.String("lesson_id", id))
	return nil
}

// AddQuestion creates a question.
func (a *Aggregator) AddQuestion(ctx context.Context, input AddQuestionInput) (domain.Question, error) {
	if err := a.requireAdmin(); err != nil {
		return domain.Question{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.Question{}, err
	}

	row := domain.Row{
		"lesson_id":      strings.TrimSpace(input.LessonID),
		"question_type":  strings.TrimSpace(input.Type),
		"question_text":  strings.TrimSpace(input.Prompt),
		"options":        nonNilOptions(input.Options),
		"correct_answer": input.CorrectAnswer,
		"order_index":    input.Order,
	}
	if input.Type == "" {
		delete(row, "question_type")
	}
	if audio := strings.TrimSpace(input.AudioText); audio != "" {
		row["audio_text"] = audio
	}

	stored, err := a.gw.Insert(ctx, domain.TableQuestions, row)
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question: %w", err)
	}

	q := normalize.Question(stored)
	a.update(func() { a.questions = upsertQuestion(a.questions, q) })

	a.log.InfoContext(ctx, "question added",
		slog.String("question_id", q.ID),
		slog.String("lesson_id", q.LessonID),
	)
	return q, nil
}

// UpdateQuestion applies a partial update to a question.
func (a *Aggregator) UpdateQuestion(ctx context.Context, input UpdateQuestionInput) (domain.Question, error) {
	if err := a.requireAdmin(); err != nil {
		return domain.Question{}, err
	}
	id := strings.TrimSpace(input.ID)
	var current *domain.Question
	if q, ok := a.questionByID(id); ok {
		current = &q
	}
	if err := input.validate(current); err != nil {
		return domain.Question{}, err
	}

	patch := domain.Row{}
	if input.Type != nil {
		patch["question_type"] = strings.TrimSpace(*input.Type)
	}
	if input.Prompt != nil {
		patch["question_text"] = strings.TrimSpace(*input.Prompt)
	}
	if input.AudioText != nil {
		patch["audio_text"] = strings.TrimSpace(*input.AudioText)
	}
	if input.Options != nil {
		patch["options"] = nonNilOptions(*input.Options)
	}
	if input.CorrectAnswer != nil {
		patch["correct_answer"] = *input.CorrectAnswer
	}
	if input.Order != nil {
		patch["order_index"] = *input.Order
	}

	stored, err := a.gw.Update(ctx, domain.TableQuestions, id, patch)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}

	q := normalize.Question(stored)
	a.update(func() { a.questions = upsertQuestion(a.questions, q) })

	a.log.InfoContext(ctx, "question updated", slog.String("question_id", id))
	return q, nil
}

// DeleteQuestion removes a question.
func (a *Aggregator) DeleteQuestion(ctx context.Context, id string) error {
	if err := a.requireAdmin(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id", "required")
	}

	if err := a.gw.Delete(ctx, domain.TableQuestions, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	a.update(func() {
		a.questions = slices.DeleteFunc(slices.Clone(a.questions), func(q domain.Question) bool { return q.ID == id })
	})

	a.log.InfoContext(ctx, "question deleted", slog.String("question_id", id))
	return nil
}

// upsertLesson returns a new slice with the row's lesson replaced or added,
// or removed when the row is inactive.
func upsertLesson(lessons []domain.Lesson, row domain.Row) []domain.Lesson {
	lesson := normalize.Lesson(row)
	out := slices.DeleteFunc(slices.Clone(lessons), func(l domain.Lesson) bool { return l.ID == lesson.ID })
	if normalize.IsInactive(row) {
		return out
	}
	i := slices.IndexFunc(lessons, func(l domain.Lesson) bool { return l.ID == lesson.ID })
	if i >= 0 && i <= len(out) {
		out = slices.Insert(out, i, lesson)
	} else {
		out = append(out, lesson)
	}
	slices.SortStableFunc(out, func(x, y domain.Lesson) int { return cmp.Compare(x.Order, y.Order) })
	return out
}

func upsertQuestion(questions []domain.Question, q domain.Question) []domain.Question {
	out := slices.Clone(questions)
	if i := slices.IndexFunc(out, func(x domain.Question) bool { return x.ID == q.ID }); i >= 0 {
		out[i] = q
	} else {
		out = append(out, q)
	}
	slices.SortStableFunc(out, func(x, y domain.Question) int { return cmp.Compare(x.Order, y.Order) })
	return out
}

func nonNilOptions(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}
