// Package normalize converts raw backend rows into canonical domain values.
// Every function is pure and never fails: malformed values are coerced to
// defaults so a partially seeded catalog still renders.
package normalize

import (
	"slices"
	"strings"

	"github.com/heartmarshall/lingua-backend/internal/domain"
)

var areaPrefixes = []struct {
	prefix string
	id     domain.AreaID
}{
	{"vocab", domain.AreaVocabulario},
	{"gram", domain.AreaGramatica},
	{"list", domain.AreaListening},
}

var areaDefaults = map[domain.AreaID]domain.Area{
	domain.AreaVocabulario: {ID: domain.AreaVocabulario, Name: "Vocabulario", Description: "Palabras y expresiones", Color: "#4F8EF7"},
	domain.AreaGramatica:   {ID: domain.AreaGramatica, Name: "Gramática", Description: "Estructuras y reglas", Color: "#F7A34F"},
	domain.AreaListening:   {ID: domain.AreaListening, Name: "Listening", Description: "Comprensión auditiva", Color: "#5FC27E"},
}

// Area canonicalizes a raw area string by prefix. Unknown and empty input
// default to vocabulario. Canonical ids map to themselves.
func Area(raw string) domain.AreaID {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range areaPrefixes {
		if strings.HasPrefix(s, p.prefix) {
			return p.id
		}
	}
	return domain.AreaVocabulario
}

// Areas normalizes area rows. Duplicates after canonicalization keep the
// first row; missing fields fall back to built-in metadata. The result is in
// canonical display order.
func Areas(rows []domain.Row) []domain.Area {
	seen := make(map[domain.AreaID]domain.Area, len(rows))
	for _, row := range rows {
		id := Area(str(row, "slug", "id"))
		if _, dup := seen[id]; dup {
			continue
		}
		def := areaDefaults[id]
		seen[id] = domain.Area{
			ID:          id,
			Name:        orDefault(str(row, "name"), def.Name),
			Description: orDefault(str(row, "description"), def.Description),
			Color:       orDefault(str(row, "color"), def.Color),
		}
	}

	out := make([]domain.Area, 0, len(seen))
	for _, id := range domain.AllAreas {
		if a, ok := seen[id]; ok {
			out = append(out, a)
		}
	}
	return slices.Clip(out)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
