package repository

import (
	"context"
	"errors"

	"ufit/internal/cache"
	"ufit/internal/models"

	"gorm.io/gorm"
)

// SupportRepository defines persistence operations for support sessions.
type SupportRepository interface {
	Create(ctx context.Context, session *models.ChatSupportSession) error
	GetByID(ctx context.Context, id uint) (*models.ChatSupportSession, error)
	GetByIDWithMessages(ctx context.Context, id uint) (*models.ChatSupportSession, error)
	FindOpenByUser(ctx context.Context, userID uint) (*models.ChatSupportSession, error)
	ListByModerator(ctx context.Context, moderatorID uint, status models.SupportStatus) ([]*models.ChatSupportSession, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.ChatSupportSession, error)
	Update(ctx context.Context, session *models.ChatSupportSession) error
	AppendMessage(ctx context.Context, msg *models.SupportMessage) error
	CountByStatus(ctx context.Context, status models.SupportStatus) (int64, error)
}

type supportRepository struct {
	db *gorm.DB
}

// NewSupportRepository returns a new SupportRepository implementation.
func NewSupportRepository(db *gorm.DB) SupportRepository {
	return &supportRepository{db: db}
}

func (r *supportRepository) Create(ctx context.Context, session *models.ChatSupportSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *supportRepository) GetByID(ctx context.Context, id uint) (*models.ChatSupportSession, error) {
	var session models.ChatSupportSession
	key := cache.SupportSessionKey(id)

	err := cache.Aside(ctx, key, &session, cache.SupportSessionTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("User").
			Preload("Moderator").
			First(&session, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("SupportSession", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *supportRepository) GetByIDWithMessages(ctx context.Context, id uint) (*models.ChatSupportSession, error) {
	var session models.ChatSupportSession
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Moderator").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("SupportSession", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

// FindOpenByUser returns the user's PENDING or ACTIVE session, or nil when
// the user has no open session. At most one open session exists per user.
func (r *supportRepository) FindOpenByUser(ctx context.Context, userID uint) (*models.ChatSupportSession, error) {
	var session models.ChatSupportSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []models.SupportStatus{models.SupportPending, models.SupportActive}).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

func (r *supportRepository) ListByModerator(ctx context.Context, moderatorID uint, status models.SupportStatus) ([]*models.ChatSupportSession, error) {
	var sessions []*models.ChatSupportSession
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("moderator_id = ?", moderatorID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sessions, nil
}

func (r *supportRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.ChatSupportSession, error) {
	var sessions []*models.ChatSupportSession
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.SupportPending).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return sessions, nil
}

func (r *supportRepository) Update(ctx context.Context, session *models.ChatSupportSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateSupportSession(ctx, session.ID)
	return nil
}

func (r *supportRepository) AppendMessage(ctx context.Context, msg *models.SupportMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *supportRepository) CountByStatus(ctx context.Context, status models.SupportStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ChatSupportSession{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
