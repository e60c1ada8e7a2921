package rest

import (
	"time"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/service/progress"
)

type identityResponse struct {
	UserID  string           `json:"user_id"`
	Email   string           `json:"email,omitempty"`
	Role    string           `json:"role"`
	Profile *profileResponse `json:"profile,omitempty"`
}

type profileResponse struct {
	FullName     string    `json:"full_name,omitempty"`
	TotalXP      int       `json:"total_xp"`
	CurrentLevel int       `json:"current_level"`
	StreakDays   int       `json:"streak_days"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

type areaResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

type levelResponse struct {
	ID       string `json:"id"`
	AreaID   string `json:"area_id"`
	Name     string `json:"name"`
	Order    int    `json:"order"`
	Unlocked bool   `json:"unlocked"`
}

type lessonResponse struct {
	ID          string `json:"id"`
	LevelID     string `json:"level_id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	AreaID      string `json:"area_id"`
	Level       int    `json:"level"`
	XPReward    int    `json:"xp_reward"`
	Order       int    `json:"order"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type questionResponse struct {
	ID            string   `json:"id"`
	LessonID      string   `json:"lesson_id"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	AudioText     string   `json:"audio_text,omitempty"`
	Options       []string `json:"options"`
	Order         int      `json:"order"`
	CorrectAnswer *string  `json:"correct_answer,omitempty"`
}

type sliceResponse struct {
	Loading bool `json:"loading"`
	Failed  bool `json:"failed"`
	Count   int  `json:"count"`
}

type progressResponse struct {
	State            string                   `json:"state"`
	Identity         *identityResponse        `json:"identity,omitempty"`
	XP               int                      `json:"xp"`
	Level            int                      `json:"level"`
	LevelNumber      int                      `json:"level_number"`
	XPToNextLevel    int                      `json:"xp_to_next_level"`
	CompletedLessons []string                 `json:"completed_lessons"`
	Stale            bool                     `json:"stale"`
	LoadedAt         time.Time                `json:"loaded_at,omitzero"`
	Slices           map[string]sliceResponse `json:"slices"`
	Areas            []areaResponse           `json:"areas"`
	Levels           []levelResponse          `json:"levels"`
	Lessons          []lessonResponse         `json:"lessons"`
}

type xpResponse struct {
	XP        int `json:"xp"`
	AwardedXP int `json:"awarded_xp"`
}

type completeResponse struct {
	Passed           bool `json:"passed"`
	AlreadyCompleted bool `json:"already_completed"`
	AwardedXP        int  `json:"awarded_xp"`
	XP               int  `json:"xp"`
}

type answerResponse struct {
	Correct   bool `json:"correct"`
	AwardedXP int  `json:"awarded_xp"`
	XP        int  `json:"xp"`
}

func toProgressResponse(s progress.Snapshot) progressResponse {
	resp := progressResponse{
		State:            s.State.String(),
		XP:               s.XP,
		Level:            s.Level,
		LevelNumber:      s.LevelNumber,
		XPToNextLevel:    s.XPToNextLevel,
		CompletedLessons: s.CompletedLessons,
		Stale:            s.Stale,
		LoadedAt:         s.LoadedAt,
		Slices:           make(map[string]sliceResponse, len(s.Slices)),
		Areas:            make([]areaResponse, 0, len(s.Areas)),
		Levels:           toLevelsResponse(s.Levels),
		Lessons:          make([]lessonResponse, 0, len(s.Lessons)),
	}
	if resp.CompletedLessons == nil {
		resp.CompletedLessons = []string{}
	}
	if s.Identity != nil {
		resp.Identity = toIdentityResponse(*s.Identity)
	}
	for t, st := range s.Slices {
		resp.Slices[t.String()] = sliceResponse{Loading: st.Loading, Failed: st.Failed, Count: st.Count}
	}
	for _, a := range s.Areas {
		resp.Areas = append(resp.Areas, areaResponse{
			ID:          string(a.ID),
			Name:        a.Name,
			Description: a.Description,
			Color:       a.Color,
		})
	}
	for _, l := range s.Lessons {
		resp.Lessons = append(resp.Lessons, toLessonResponse(l))
	}
	return resp
}

func toIdentityResponse(id domain.Identity) *identityResponse {
	resp := &identityResponse{
		UserID: id.UserID.String(),
		Email:  id.Email,
		Role:   string(id.Role),
	}
	if p := id.Profile; p != nil {
		resp.Profile = &profileResponse{
			FullName:     p.FullName,
			TotalXP:      p.TotalXP,
			CurrentLevel: p.CurrentLevel,
			StreakDays:   p.StreakDays,
			CreatedAt:    p.CreatedAt,
		}
	}
	return resp
}

func toLevelResponse(l domain.Level) levelResponse {
	return levelResponse{
		ID:       l.ID,
		AreaID:   string(l.AreaID),
		Name:     l.Name,
		Order:    l.Order,
		Unlocked: l.Unlocked,
	}
}

func toLevelsResponse(levels []domain.Level) []levelResponse {
	out := make([]levelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, toLevelResponse(l))
	}
	return out
}

func toLessonResponse(l domain.Lesson) lessonResponse {
	return lessonResponse{
		ID:          l.ID,
		LevelID:     l.LevelID,
		Title:       l.Title,
		Type:        string(l.Type),
		AreaID:      string(l.AreaID),
		Level:       l.Level,
		XPReward:    l.XPReward,
		Order:       l.Order,
		Description: l.Description,
		IsActive:    l.IsActive,
	}
}

// toQuestionResponse renders a question. The expected answer is included
// only when withAnswer is set.
func toQuestionResponse(q domain.Question, withAnswer bool) questionResponse {
	resp := questionResponse{
		ID:        q.ID,
		LessonID:  q.LessonID,
		Type:      q.Type,
		Prompt:    q.Prompt,
		AudioText: q.AudioText,
		Options:   q.Options,
		Order:     q.Order,
	}
	if resp.Options == nil {
		resp.Options = []string{}
	}
	if withAnswer {
		answer := q.CorrectAnswer()
		resp.CorrectAnswer = &answer
	}
	return resp
}
