package service

import (
	"context"
	"strings"

	"ufit/internal/models"
	"ufit/internal/repository"
)

// ForumService handles topics, posts, and bounded reply trees.
type ForumService struct {
	topicRepo repository.TopicRepository
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
}

type CreateTopicInput struct {
	AuthorID    uint
	Title       string
	Description string
}

type CreatePostInput struct {
	AuthorID uint
	TopicID  uint
	ParentID *uint
	Content  string
}

func NewForumService(
	topicRepo repository.TopicRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
) *ForumService {
	return &ForumService{topicRepo: topicRepo, postRepo: postRepo, userRepo: userRepo}
}

func (s *ForumService) CreateTopic(ctx context.Context, in CreateTopicInput) (*models.Topic, error) {
	const maxTitleLen = 200

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}

	topic := &models.Topic{
		Title:       title,
		Description: in.Description,
		AuthorID:    in.AuthorID,
	}
	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *ForumService) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	return s.topicRepo.GetByID(ctx, id)
}

func (s *ForumService) ListTopics(ctx context.Context, limit, offset int) ([]*models.Topic, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.topicRepo.List(ctx, limit, offset)
}

// CreatePost adds a post to a topic. When ParentID is set the parent must
// exist and belong to the same topic; the reply is one level below it.
func (s *ForumService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxContentLen = 50000

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 50000 characters)")
	}

	if _, err := s.topicRepo.GetByID(ctx, in.TopicID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.postRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.TopicID != in.TopicID {
			return nil, models.NewValidationError("parent post belongs to a different topic")
		}
	}

	post := &models.Post{
		TopicID:  in.TopicID,
		ParentID: in.ParentID,
		AuthorID: in.AuthorID,
		Content:  content,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ForumService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// GetThread returns a post with its reply tree, fetched level by level with
// an explicit depth bound.
func (s *ForumService) GetThread(ctx context.Context, rootID uint, maxDepth int) (*models.Post, error) {
	return s.postRepo.GetReplyTree(ctx, rootID, maxDepth)
}

func (s *ForumService) ListTopicPosts(ctx context.Context, topicID uint, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if _, err := s.topicRepo.GetByID(ctx, topicID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByTopicID(ctx, topicID, limit, offset)
}

// DeletePost removes a post. Only the author or a moderating role may delete.
func (s *ForumService) DeletePost(ctx context.Context, postID, callerID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	if post.AuthorID != callerID {
		caller, err := s.userRepo.GetByID(ctx, callerID)
		if err != nil {
			return err
		}
		if !caller.Role.CanModerate() {
			return models.NewForbiddenError("not allowed to delete this post")
		}
	}

	return s.postRepo.Delete(ctx, postID)
}
