package progress

import (
	"context"
	"log/slog"
	"strings"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// AnswerResult describes a recorded answer.
type AnswerResult struct {
	Correct   bool
	AwardedXP int
	XP        int
}

// AnswerQuestion awards answer XP on a correct answer and appends an audit
// row. The audit write never fails the call.
func (a *Aggregator) AnswerQuestion(ctx context.Context, input AnswerInput) (AnswerResult, error) {
	if err := input.Validate(); err != nil {
		return AnswerResult{}, err
	}
	questionID := strings.TrimSpace(input.QuestionID)

	var correct bool
	if input.IsCorrect != nil {
		correct = *input.IsCorrect
	} else {
		ok, found := a.CheckAnswer(questionID, input.UserAnswer)
		if !found {
			return AnswerResult{}, domain.NewValidationError("question_id", "unknown question")
		}
		correct = ok
	}

	res := AnswerResult{Correct: correct, XP: a.Progress().XP}
	if correct {
		res.AwardedXP = a.opts.AnswerXP
		res.XP = a.AddXP(ctx, a.opts.AnswerXP)
	}

	identity, signed := a.Identity()
	if !signed {
		return res, nil
	}
	_, err := a.gw.Insert(context.WithoutCancel(ctx), domain.TableUserAnswers, domain.Row{
		"user_id":     identity.UserID.String(),
		"question_id": questionID,
		"user_answer": input.UserAnswer,
		"is_correct":  correct,
		"answered_at": a.clock().UTC(),
	})
	if err != nil {
		a.log.WarnContext(ctx, "answer audit write failed",
			slog.String("table", domain.TableUserAnswers.String()),
			slog.String("question_id", questionID),
			slog.String("error", err.Error()),
		)
	}
	return res, nil
}
