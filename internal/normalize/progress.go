package normalize

import (
	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// Profile normalizes a users row. A nil row yields nil.
func Profile(row domain.Row) *domain.Profile {
	if row == nil {
		return nil
	}
	xp, _ := integer(row, "total_xp")
	if xp < 0 {
		xp = 0
	}
	level, _ := integer(row, "current_level")
	streak, _ := integer(row, "streak_days")
	return &domain.Profile{
		FullName:     str(row, "full_name"),
		TotalXP:      xp,
		CurrentLevel: level,
		StreakDays:   streak,
		CreatedAt:    asTime(row["created_at"]),
	}
}

// CompletedLessons collects lesson ids of progress rows with is_completed = true.
func CompletedLessons(rows []domain.Row) map[string]struct{} {
	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		done, ok := asBool(row["is_completed"])
		if !ok || !done {
			continue
		}
		if id := str(row, "lesson_id"); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
