package repository

import (
	"context"
	"errors"
	"time"

	"ufit/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenRepository defines persistence operations for password reset tokens.
type TokenRepository interface {
	Issue(ctx context.Context, userID uint, ttl time.Duration) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, token string) (*models.PasswordResetToken, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new TokenRepository implementation.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

// Issue creates a fresh single-use token for the user. Outstanding unused
// tokens for the same user are invalidated so only the newest one redeems.
func (r *tokenRepository) Issue(ctx context.Context, userID uint, ttl time.Duration) (*models.PasswordResetToken, error) {
	now := time.Now()
	token := &models.PasswordResetToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used_at IS NULL", userID).
			Update("used_at", now).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return token, nil
}

// Consume redeems a token, marking it used. Unknown, expired, and already
// used tokens all fail the same way so callers cannot probe token state.
func (r *tokenRepository) Consume(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var reset models.PasswordResetToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&reset, "token = ?", token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewValidationError("invalid or expired reset token")
			}
			return models.NewInternalError(err)
		}

		now := time.Now()
		if !reset.Usable(now) {
			return models.NewValidationError("invalid or expired reset token")
		}

		reset.UsedAt = &now
		return tx.Save(&reset).Error
	})
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

// PurgeExpired deletes tokens past their expiry. Run periodically from the
// server's background loop.
func (r *tokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.PasswordResetToken{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
