package service

import (
	"context"

	"ufit/internal/models"

	"gorm.io/gorm"
)

// DashboardStats aggregates platform counts for the admin dashboard.
type DashboardStats struct {
	Users           int64         `json:"users"`
	Topics          int64         `json:"topics"`
	Posts           int64         `json:"posts"`
	Votes           int64         `json:"votes"`
	Articles        int64         `json:"articles"`
	PendingSupport  int64         `json:"pending_support"`
	ActiveSupport   int64         `json:"active_support"`
	TopKarmaAuthors []models.User `json:"top_karma_authors"`
}

// AdminService provides aggregate views for admin dashboards.
type AdminService struct {
	db *gorm.DB
}

// NewAdminService returns a new AdminService.
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// GetDashboardStats returns platform-wide counts plus the top karma authors.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx)

	counts := []struct {
		model any
		dest  *int64
	}{
		{&models.User{}, &stats.Users},
		{&models.Topic{}, &stats.Topics},
		{&models.Post{}, &stats.Posts},
		{&models.Vote{}, &stats.Votes},
		{&models.Article{}, &stats.Articles},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	if err := db.Model(&models.ChatSupportSession{}).
		Where("status = ?", models.SupportPending).
		Count(&stats.PendingSupport).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.ChatSupportSession{}).
		Where("status = ?", models.SupportActive).
		Count(&stats.ActiveSupport).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := db.Model(&models.User{}).
		Order("karma DESC").
		Limit(5).
		Find(&stats.TopKarmaAuthors).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	return stats, nil
}
