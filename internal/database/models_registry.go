package database

import "ufit/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Topic{},
		&models.Post{},
		&models.Vote{},
		&models.ChatSupportSession{},
		&models.SupportMessage{},
		&models.Article{},
		&models.PasswordResetToken{},
	}
}
