// Package service implements the application's business logic.
package service

import (
	"context"
	"errors"

	"ufit/internal/models"
	"ufit/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteService applies vote state transitions and keeps post counters and
// author karma consistent with the set of standing Vote rows.
type VoteService struct {
	db *gorm.DB
}

// VoteResult reports the outcome of a cast: the post with updated counters,
// and whether the action retracted a standing vote rather than recording one.
type VoteResult struct {
	Post    *models.Post `json:"post"`
	Removed bool         `json:"removed"`
}

// NewVoteService returns a VoteService backed by the given database.
func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// CastVote applies one vote action for (postID, voterID):
//
//	no standing vote        -> create in the requested direction
//	same direction standing -> delete (toggle off)
//	opposite direction      -> update in place (switch)
//
// Post counters are mutated accordingly and the author's karma is overwritten
// with the authoritative recomputation from vote counts. All writes happen in
// one transaction; on postgres the post row is locked so concurrent casts on
// the same post serialize.
func (s *VoteService) CastVote(ctx context.Context, postID, voterID uint, upvote bool) (*VoteResult, error) {
	var post models.Post
	var removed bool
	outcome := "created"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voter models.User
		if err := tx.First(&voter, voterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", voterID)
			}
			return models.NewInternalError(err)
		}

		postQuery := tx
		if tx.Dialector.Name() == "postgres" {
			postQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := postQuery.First(&post, postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", postID)
			}
			return models.NewInternalError(err)
		}

		var existing models.Vote
		err := tx.Where("post_id = ? AND voter_id = ?", postID, voterID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{PostID: postID, VoterID: voterID, Upvote: upvote}
			if err := tx.Create(&vote).Error; err != nil {
				return models.NewInternalError(err)
			}
			if upvote {
				post.Upvotes++
			} else {
				post.Downvotes++
			}

		case err != nil:
			return models.NewInternalError(err)

		case existing.Upvote == upvote:
			// Toggle off: same direction retracts the vote
			if err := tx.Delete(&existing).Error; err != nil {
				return models.NewInternalError(err)
			}
			if upvote {
				post.Upvotes--
			} else {
				post.Downvotes--
			}
			removed = true
			outcome = "removed"

		default:
			// Switch direction in place
			existing.Upvote = upvote
			if err := tx.Save(&existing).Error; err != nil {
				return models.NewInternalError(err)
			}
			if upvote {
				post.Downvotes--
				post.Upvotes++
			} else {
				post.Upvotes--
				post.Downvotes++
			}
			outcome = "switched"
		}

		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"upvotes":   post.Upvotes,
			"downvotes": post.Downvotes,
		}).Error; err != nil {
			return models.NewInternalError(err)
		}

		karma, err := recomputeKarma(tx, post.AuthorID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", post.AuthorID).
			Update("karma", karma).Error; err != nil {
			return models.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.VotesCastTotal.WithLabelValues(outcome).Inc()
	return &VoteResult{Post: &post, Removed: removed}, nil
}

// recomputeKarma derives the author's karma from the standing Vote rows
// across all their posts: floor(totalUp/3) - floor(totalDown/5). The stored
// value is always overwritten with this result, never trusted incrementally.
func recomputeKarma(tx *gorm.DB, authorID uint) (int, error) {
	var totalUp, totalDown int64

	base := func() *gorm.DB {
		return tx.Model(&models.Vote{}).
			Joins("JOIN posts ON posts.id = votes.post_id").
			Where("posts.author_id = ? AND posts.deleted_at IS NULL", authorID)
	}

	if err := base().Where("votes.upvote = ?", true).Count(&totalUp).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if err := base().Where("votes.upvote = ?", false).Count(&totalDown).Error; err != nil {
		return 0, models.NewInternalError(err)
	}

	return int(totalUp/3 - totalDown/5), nil
}
