package seed

import (
	"parley/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCategory is a permanent system conversation category.
type BuiltInCategory struct {
	Name        string
	Slug        string
	Description string
}

// BuiltInCategories defines the default taxonomy for group conversations.
var BuiltInCategories = []BuiltInCategory{
	{Name: "General", Slug: "general", Description: "Anything and everything."},
	{Name: "Gaming", Slug: "gaming", Description: "Gaming across all platforms."},
	{Name: "Music", Slug: "music", Description: "Music discovery and discussion."},
	{Name: "Movies", Slug: "movies", Description: "Film discussion and recommendations."},
	{Name: "Books", Slug: "books", Description: "Books, writing, and reading lists."},
	{Name: "Technology", Slug: "technology", Description: "Software, hardware, and tooling."},
	{Name: "Fitness", Slug: "fitness", Description: "Fitness and training programs."},
	{Name: "Food", Slug: "food", Description: "Food, cooking, and nutrition."},
	{Name: "Travel", Slug: "travel", Description: "Destinations and trip reports."},
	{Name: "Art", Slug: "art", Description: "Visual art and creative work."},
}

// Categories upserts the built-in categories. Existing rows are left
// untouched so admin edits survive restarts.
func Categories(db *gorm.DB) error {
	for _, item := range BuiltInCategories {
		category := models.ConversationCategory{
			Name:        item.Name,
			Slug:        item.Slug,
			Description: item.Description,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&category).Error; err != nil {
			return err
		}
	}
	return nil
}
