package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

func TestLevels_UnlockGate(t *testing.T) {
	t.Parallel()

	rows := []domain.Row{
		{"id": "l3", "order_index": 3},
		{"id": "l1", "order_index": 1},
		{"id": "l2", "order_index": 2},
	}

	got := Levels(rows, 2)

	require.Len(t, got, 3)
	assert.Equal(t, []bool{true, true, false}, []bool{got[0].Unlocked, got[1].Unlocked, got[2].Unlocked})
	assert.Equal(t, "l1", got[0].ID)
}

func TestLevel_Defaults(t *testing.T) {
	t.Parallel()

	got := Level(domain.Row{"area": "listening"}, 1)

	assert.Equal(t, "listening-1", got.ID)
	assert.Equal(t, 1, got.Order)
	assert.Equal(t, "Nivel 1", got.Name)
	assert.True(t, got.Unlocked)
}

func TestRelock(t *testing.T) {
	t.Parallel()

	levels := Levels([]domain.Row{{"order_index": 1}, {"order_index": 2}}, 1)
	require.False(t, levels[1].Unlocked)

	relocked := Relock(levels, 2)

	assert.True(t, relocked[1].Unlocked)
	assert.False(t, levels[1].Unlocked, "input slice must not be mutated")
}
