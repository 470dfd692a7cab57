package mapper

import (
	"deskboard/internal/docstore"
	"deskboard/internal/models"
)

// ToCategories reads the ordered category list from the settings record.
// Entries without an id are skipped; a missing name falls back to the id.
func ToCategories(doc docstore.Document) []models.Category {
	raw, ok := doc.Fields[FieldCategories].([]any)
	if !ok {
		return []models.Category{}
	}
	cats := make([]models.Category, 0, len(raw))
	seen := map[string]struct{}{}
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		icon, _ := m["icon"].(string)
		cats = append(cats, models.Category{
			ID:   id,
			Name: stringOr(m["name"], id),
			Icon: icon,
		})
	}
	return cats
}

// FromCategories renders a category list for storage in the settings record.
func FromCategories(cats []models.Category) []any {
	out := make([]any, len(cats))
	for i, c := range cats {
		entry := map[string]any{"id": c.ID, "name": c.Name}
		if c.Icon != "" {
			entry["icon"] = c.Icon
		}
		out[i] = entry
	}
	return out
}
