package service

import (
	"context"
	"time"

	"ufit/internal/models"
	"ufit/internal/repository"
	"ufit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	resetTTL  time.Duration
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Bio      string
	Avatar   string
}

func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, resetTTL time.Duration) *UserService {
	if resetTTL <= 0 {
		resetTTL = 30 * time.Minute
	}
	return &UserService{userRepo: userRepo, tokenRepo: tokenRepo, resetTTL: resetTTL}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetProfile(ctx context.Context, id uint, postLimit int) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, id, postLimit)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500

	if in.Username != "" {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = in.Username
	}
	if in.Bio != "" {
		if len(in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = in.Bio
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetRole assigns one of the known roles to a user. Unknown role names are
// rejected rather than degraded, so a typo cannot silently demote anyone.
func (s *UserService) SetRole(ctx context.Context, targetID uint, role string) (*models.User, error) {
	parsed := models.ParseRole(role)
	if string(parsed) != role {
		return nil, models.NewValidationError("unknown role")
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, parsed); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}

// RequestPasswordReset issues a fresh single-use token for the account with
// the given email. Unknown emails return no error and no token so the
// endpoint cannot be used to probe for accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (*models.PasswordResetToken, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return s.tokenRepo.Issue(ctx, user.ID, s.resetTTL)
}

// ConfirmPasswordReset redeems a token and replaces the account password.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	reset, err := s.tokenRepo.Consume(ctx, token)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, reset.UserID)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hashed)
	return s.userRepo.Update(ctx, user)
}

// PurgeExpiredResetTokens removes dead tokens; called from the server's
// background maintenance loop.
func (s *UserService) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.PurgeExpired(ctx)
}
