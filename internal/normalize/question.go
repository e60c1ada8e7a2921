package normalize

import (
	"cmp"
	"slices"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

const defaultQuestionType = "reading"

// Questions normalizes question rows sorted by order_index (stable).
func Questions(rows []domain.Row) []domain.Question {
	out := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, Question(row))
	}
	slices.SortStableFunc(out, func(a, b domain.Question) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Question normalizes a single question row. It is multiple-choice when the
// options are non-empty and contain the correct answer; otherwise the correct
// answer is kept verbatim as free text.
func Question(row domain.Row) domain.Question {
	prompt := str(row, "question_text", "prompt")
	order, _ := integer(row, "order_index", "order")

	q := domain.Question{
		ID:        str(row, "id"),
		LessonID:  str(row, "lesson_id"),
		Type:      orDefault(str(row, "question_type", "type"), defaultQuestionType),
		Prompt:    prompt,
		AudioText: orDefault(str(row, "audio_text"), prompt),
		Options:   stringList(row["options"]),
		Order:     order,
	}

	raw, present := row["correct_answer"]
	correct := asString(raw)
	if len(q.Options) > 0 {
		if idx := slices.Index(q.Options, correct); idx >= 0 {
			q.AnswerIndex = &idx
			return q
		}
	}
	if present && raw != nil {
		q.AnswerText = &correct
	}
	return q
}
