package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultLessonXP is the reward of a lesson whose row carries no xp_reward.
const DefaultLessonXP = 50

// Area is a top-level skill category. Areas are read-only reference data.
type Area struct {
	ID          AreaID
	Name        string
	Description string
	Color       string
}

// Level is an ordered unlock gate within an area.
// Unlocked is derived locally and never stored remotely.
type Level struct {
	ID       string
	AreaID   AreaID
	Name     string
	Order    int
	Unlocked bool
}

// Lesson is a unit of content inside a level.
type Lesson struct {
	ID          string
	LevelID     string
	Title       string
	Type        LessonType
	AreaID      AreaID
	Level       int
	XPReward    int
	Order       int
	Description string
	IsActive    bool
}

// Question is a single assessable item of a lesson. A multiple-choice
// question has Options and AnswerIndex; a free-text question has AnswerText.
type Question struct {
	ID          string
	LessonID    string
	Type        string
	Prompt      string
	AudioText   string
	Options     []string
	AnswerIndex *int
	AnswerText  *string
	Order       int
}

// IsMultipleChoice reports whether the question is answered by picking an option.
func (q Question) IsMultipleChoice() bool {
	return q.AnswerIndex != nil
}

// IsMiscategorized reports whether the question carries options but its
// correct answer is not one of them. Such rows are graded as free text.
func (q Question) IsMiscategorized() bool {
	return len(q.Options) > 0 && q.AnswerIndex == nil
}

// CorrectAnswer returns the expected answer as text.
func (q Question) CorrectAnswer() string {
	if q.AnswerIndex != nil && *q.AnswerIndex >= 0 && *q.AnswerIndex < len(q.Options) {
		return q.Options[*q.AnswerIndex]
	}
	if q.AnswerText != nil {
		return *q.AnswerText
	}
	return ""
}

// Check grades a user answer. Multiple-choice answers match either the
// option index (as a decimal string) or the option text; free text matches
// after NormalizeText on both sides.
func (q Question) Check(answer string) bool {
	if q.IsMultipleChoice() {
		if idx, err := strconv.Atoi(strings.TrimSpace(answer)); err == nil && idx == *q.AnswerIndex {
			return true
		}
	}
	want := NormalizeText(q.CorrectAnswer())
	return want != "" && NormalizeText(answer) == want
}

// LevelIDFor returns the composite level identifier shared by all lessons of
// the same area and level number.
func LevelIDFor(area AreaID, level int) string {
	return fmt.Sprintf("%s-%d", area, level)
}
