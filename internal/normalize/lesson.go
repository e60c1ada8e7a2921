package normalize

import (
	"cmp"
	"slices"
	"strings"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// Lessons normalizes lesson rows, drops rows with is_active = false, and
// sorts by order. Rows with equal order keep their input order.
func Lessons(rows []domain.Row) []domain.Lesson {
	out := make([]domain.Lesson, 0, len(rows))
	for _, row := range rows {
		if IsInactive(row) {
			continue
		}
		out = append(out, Lesson(row))
	}
	slices.SortStableFunc(out, func(a, b domain.Lesson) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// IsInactive reports whether a row is explicitly marked inactive.
// Only a boolean false counts; a missing flag means active.
func IsInactive(row domain.Row) bool {
	active, ok := row["is_active"].(bool)
	return ok && !active
}

// Lesson normalizes a single lesson row.
func Lesson(row domain.Row) domain.Lesson {
	area := Area(str(row, "area", "area_id"))
	level := positive(row, 1, "level")
	order, _ := integer(row, "order_index", "order")

	lessonType := domain.LessonType(strings.ToLower(str(row, "type")))
	if !lessonType.IsValid() {
		lessonType = domain.LessonTypeReading
	}

	xp, ok := integer(row, "xp_reward")
	if !ok || xp < 0 {
		xp = domain.DefaultLessonXP
	}

	return domain.Lesson{
		ID:          str(row, "id"),
		LevelID:     domain.LevelIDFor(area, level),
		Title:       str(row, "title"),
		Type:        lessonType,
		AreaID:      area,
		Level:       level,
		XPReward:    xp,
		Order:       order,
		Description: str(row, "description"),
		IsActive:    !IsInactive(row),
	}
}
