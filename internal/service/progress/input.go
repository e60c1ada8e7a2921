package progress

import (
	"fmt"
	"slices"
	"strings"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// CompleteLessonInput holds the parameters of a lesson completion.
type CompleteLessonInput struct {
	LessonID     string
	ScorePercent int
	// Attempts defaults to 1.
	Attempts int
}

// Validate checks all fields and collects all errors.
func (i CompleteLessonInput) Validate() error {
	var errs []domain.FieldError
	if strings.TrimSpace(i.LessonID) == "" {
		errs = append(errs, domain.FieldError{Field: "lesson_id", Message: "required"})
	}
	if i.ScorePercent < 0 || i.ScorePercent > 100 {
		errs = append(errs, domain.FieldError{Field: "score_percent", Message: "must be between 0 and 100"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// MaxXPAdjustment bounds a single manual XP correction in either direction.
const MaxXPAdjustment = 100 * domain.XPPerLevel

// AdjustXPInput holds a manual XP correction.
type AdjustXPInput struct {
	Amount int
}

// Validate checks all fields and collects all errors.
func (i AdjustXPInput) Validate() error {
	switch {
	case i.Amount == 0:
		return domain.NewValidationError("amount", "must not be zero")
	case i.Amount > MaxXPAdjustment || i.Amount < -MaxXPAdjustment:
		return domain.NewValidationError("amount", fmt.Sprintf("must be between %d and %d", -MaxXPAdjustment, MaxXPAdjustment))
	}
	return nil
}

// AnswerInput holds a single answered question. When IsCorrect is nil the
// answer is graded against the catalog.
type AnswerInput struct {
	QuestionID string
	UserAnswer string
	IsCorrect  *bool
}

// Validate checks all fields and collects all errors.
func (i AnswerInput) Validate() error {
	if strings.TrimSpace(i.QuestionID) == "" {
		return domain.NewValidationError("question_id", "required")
	}
	return nil
}

// AddLevelInput holds the parameters for creating a level.
type AddLevelInput struct {
	AreaID string
	Name   string
	Order  int
}

// Validate checks all fields and collects all errors.
func (i AddLevelInput) Validate() error {
	var errs []domain.FieldError
	errs = validateArea(errs, i.AreaID)
	if strings.TrimSpace(i.Name) == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	}
	if i.Order <= 0 {
		errs = append(errs, domain.FieldError{Field: "order", Message: "must be a positive number"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// AddLessonInput holds the parameters for creating a lesson.
type AddLessonInput struct {
	Title       string
	AreaID      string
	Level       int
	Type        string
	XPReward    *int
	Order       int
	Description string
	IsActive    *bool
}

// Validate checks all fields and collects all errors.
func (i AddLessonInput) Validate() error {
	var errs []domain.FieldError
	if strings.TrimSpace(i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	}
	errs = validateArea(errs, i.AreaID)
	if i.Level <= 0 {
		errs = append(errs, domain.FieldError{Field: "level", Message: "must be a positive number"})
	}
	if i.Type != "" {
		errs = validateLessonType(errs, i.Type)
	}
	if i.XPReward != nil && *i.XPReward < 0 {
		errs = append(errs, domain.FieldError{Field: "xp_reward", Message: "must be non-negative"})
	}
	if i.Order < 0 {
		errs = append(errs, domain.FieldError{Field: "order", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateLessonInput holds a partial lesson update. Nil fields are unchanged.
type UpdateLessonInput struct {
	ID          string
	Title       *string
	AreaID      *string
	Level       *int
	Type        *string
	XPReward    *int
	Order       *int
	Description *string
	IsActive    *bool
}

func (i UpdateLessonInput) isEmpty() bool {
	return i.Title == nil && i.AreaID == nil && i.Level == nil && i.Type == nil &&
		i.XPReward == nil && i.Order == nil && i.Description == nil && i.IsActive == nil
}

// Validate checks all fields and collects all errors.
func (i UpdateLessonInput) Validate() error {
	var errs []domain.FieldError
	if strings.TrimSpace(i.ID) == "" {
		errs = append(errs, domain.FieldError{Field: "id", Message: "required"})
	}
	if i.isEmpty() {
		errs = append(errs, domain.FieldError{Field: "input", Message: "at least one field must be provided"})
	}
	if i.Title != nil && strings.TrimSpace(*i.Title) == "" {
		errs = append(errs, domain.FieldError{Field: "title", Message: "required"})
	}
	if i.AreaID != nil {
		errs = validateArea(errs, *i.AreaID)
	}
	if i.Level != nil && *i.Level <= 0 {
		errs = append(errs, domain.FieldError{Field: "level", Message: "must be a positive number"})
	}
	if i.Type != nil {
		errs = validateLessonType(errs, *i.Type)
	}
	if i.XPReward != nil && *i.XPReward < 0 {
		errs = append(errs, domain.FieldError{Field: "xp_reward", Message: "must be non-negative"})
	}
	if i.Order != nil && *i.Order < 0 {
		errs = append(errs, domain.FieldError{Field: "order", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// AddQuestionInput holds the parameters for creating a question. A question
// with options is multiple-choice and CorrectAnswer must be one of them.
type AddQuestionInput struct {
	LessonID      string
	Type          string
	Prompt        string
	AudioText     string
	Options       []string
	CorrectAnswer string
	Order         int
}

// Validate checks all fields and collects all errors.
func (i AddQuestionInput) Validate() error {
	var errs []domain.FieldError
	if strings.TrimSpace(i.LessonID) == "" {
		errs = append(errs, domain.FieldError{Field: "lesson_id", Message: "required"})
	}
	if strings.TrimSpace(i.Prompt) == "" {
		errs = append(errs, domain.FieldError{Field: "prompt", Message: "required"})
	}
	errs = validateAnswer(errs, i.Options, i.CorrectAnswer)
	if i.Order < 0 {
		errs = append(errs, domain.FieldError{Field: "order", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UpdateQuestionInput holds a partial question update. Nil fields are unchanged.
type UpdateQuestionInput struct {
	ID            string
	Type          *string
	Prompt        *string
	AudioText     *string
	Options       *[]string
	CorrectAnswer *string
	Order         *int
}

func (i UpdateQuestionInput) isEmpty() bool {
	return i.Type == nil && i.Prompt == nil && i.AudioText == nil &&
		i.Options == nil && i.CorrectAnswer == nil && i.Order == nil
}

// validate checks the patch against the current question, if known, so the
// resulting options and answer stay consistent.
func (i UpdateQuestionInput) validate(current *domain.Question) error {
	var errs []domain.FieldError
	if strings.TrimSpace(i.ID) == "" {
		errs = append(errs, domain.FieldError{Field: "id", Message: "required"})
	}
	if i.isEmpty() {
		errs = append(errs, domain.FieldError{Field: "input", Message: "at least one field must be provided"})
	}
	if i.Prompt != nil && strings.TrimSpace(*i.Prompt) == "" {
		errs = append(errs, domain.FieldError{Field: "prompt", Message: "required"})
	}
	if i.Order != nil && *i.Order < 0 {
		errs = append(errs, domain.FieldError{Field: "order", Message: "must be non-negative"})
	}

	if i.Options != nil || i.CorrectAnswer != nil {
		var (
			options []string
			answer  string
		)
		if current != nil {
			options, answer = current.Options, current.CorrectAnswer()
		}
		if i.Options != nil {
			options = *i.Options
		}
		if i.CorrectAnswer != nil {
			answer = *i.CorrectAnswer
		}
		if current != nil || i.CorrectAnswer != nil {
			errs = validateAnswer(errs, options, answer)
		}
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func validateArea(errs []domain.FieldError, raw string) []domain.FieldError {
	if !domain.AreaID(strings.ToLower(strings.TrimSpace(raw))).IsValid() {
		return append(errs, domain.FieldError{Field: "area", Message: "must be one of vocabulario, gramatica, listening"})
	}
	return errs
}

func validateLessonType(errs []domain.FieldError, raw string) []domain.FieldError {
	if !domain.LessonType(strings.ToLower(strings.TrimSpace(raw))).IsValid() {
		return append(errs, domain.FieldError{Field: "type", Message: "must be one of reading, writing, listening"})
	}
	return errs
}

func validateAnswer(errs []domain.FieldError, options []string, answer string) []domain.FieldError {
	if strings.TrimSpace(answer) == "" {
		return append(errs, domain.FieldError{Field: "correct_answer", Message: "required"})
	}
	if len(options) > 0 && !slices.Contains(options, answer) {
		return append(errs, domain.FieldError{Field: "correct_answer", Message: "must be one of the options"})
	}
	return errs
}
