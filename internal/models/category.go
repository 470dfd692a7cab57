// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// DefaultCategoryID is the fallback category. Posts with a missing category
// map to it, and deleting a category reassigns its posts to it.
const DefaultCategoryID = "general"

// AllCategoriesID is the pseudo-category meaning "no category filter".
const AllCategoriesID = "all"

// Category is one entry of the ordered category list kept in the settings
// record.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// DefaultSystemCategories is the system set used when no categories file is
// configured.
func DefaultSystemCategories() []Category {
	return []Category{
		{ID: DefaultCategoryID, Name: "General", Icon: "folder"},
		{ID: "notice", Name: "Notice", Icon: "megaphone"},
		{ID: "tech", Name: "Tech", Icon: "cpu"},
	}
}

// CategoryIDs returns the ids of cats in order.
func CategoryIDs(cats []Category) []string {
	ids := make([]string, len(cats))
	for i, c := range cats {
		ids[i] = c.ID
	}
	return ids
}
