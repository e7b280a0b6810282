package seed

import (
	"errors"

	"ufit/internal/models"

	"gorm.io/gorm"
)

// BuiltInTopic is a permanent system forum topic.
type BuiltInTopic struct {
	Title       string
	Description string
}

// BuiltInTopics defines the permanent system topics every installation gets.
var BuiltInTopics = []BuiltInTopic{
	{Title: "General Discussion", Description: "Anything fitness that doesn't fit elsewhere."},
	{Title: "Strength Training", Description: "Lifting programs, form checks, and PRs."},
	{Title: "Running & Cardio", Description: "Road, trail, treadmill, and everything aerobic."},
	{Title: "Nutrition", Description: "Meal planning, macros, and supplements."},
	{Title: "Weight Loss", Description: "Cutting, tracking, and staying accountable."},
	{Title: "Recovery & Mobility", Description: "Sleep, stretching, and injury prevention."},
	{Title: "Beginners", Description: "Starting out? Ask anything here."},
	{Title: "Progress Logs", Description: "Share your training logs and milestones."},
	{Title: "Announcements", Description: "Platform updates from the UFit team."},
}

// Topics seeds the permanent built-in topics under a system author. Existing
// topics are matched by title and left alone, so the seeder is safe to run on
// every boot. With no users in the database yet there is nobody to own the
// topics, so seeding is skipped until the next run.
func Topics(db *gorm.DB) error {
	var author models.User
	err := db.Where("role = ?", models.RoleAdmin).Order("id ASC").First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Order("id ASC").First(&author).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, item := range BuiltInTopics {
		topic := models.Topic{
			Title:       item.Title,
			Description: item.Description,
			AuthorID:    author.ID,
		}
		if err := db.Where("title = ?", item.Title).
			FirstOrCreate(&topic).Error; err != nil {
			return err
		}
	}
	return nil
}
