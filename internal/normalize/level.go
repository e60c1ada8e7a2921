package normalize

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

// Levels normalizes level rows sorted by order and marks each one unlocked
// when its order does not exceed currentLevelNumber.
func Levels(rows []domain.Row, currentLevelNumber int) []domain.Level {
	out := make([]domain.Level, 0, len(rows))
	for _, row := range rows {
		out = append(out, Level(row, currentLevelNumber))
	}
	slices.SortStableFunc(out, func(a, b domain.Level) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Level normalizes a single level row. A missing id is replaced by the
// area+order composite so it groups with lessons of the same level.
func Level(row domain.Row, currentLevelNumber int) domain.Level {
	area := Area(str(row, "area", "area_id"))
	order := positive(row, 1, "order_index", "order")

	id := str(row, "id")
	if id == "" {
		id = domain.LevelIDFor(area, order)
	}

	return domain.Level{
		ID:       id,
		AreaID:   area,
		Name:     orDefault(str(row, "name"), fmt.Sprintf("Nivel %d", order)),
		Order:    order,
		Unlocked: domain.IsUnlocked(order, currentLevelNumber),
	}
}

// Relock recomputes Unlocked for already-normalized levels.
func Relock(levels []domain.Level, currentLevelNumber int) []domain.Level {
	out := make([]domain.Level, len(levels))
	for i, l := range levels {
		l.Unlocked = domain.IsUnlocked(l.Order, currentLevelNumber)
		out[i] = l
	}
	return out
}
