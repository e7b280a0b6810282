package repository

import (
	"context"
	"errors"

	"ufit/internal/cache"
	"ufit/internal/models"

	"gorm.io/gorm"
)

// MaxReplyDepth bounds reply-tree fetches. Posts nested deeper than this are
// reachable by fetching the subtree rooted at a deeper post.
const MaxReplyDepth = 8

// TopicRepository defines the interface for forum topic data operations
type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id uint) (*models.Topic, error)
	List(ctx context.Context, limit, offset int) ([]*models.Topic, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// PostRepository defines the interface for forum post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByTopicID(ctx context.Context, topicID uint, limit, offset int) ([]*models.Post, error)
	GetReplyTree(ctx context.Context, rootID uint, maxDepth int) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
	GetVote(ctx context.Context, postID, voterID uint) (*models.Vote, error)
}

type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *topicRepository) GetByID(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	key := cache.TopicKey(id)

	err := cache.Aside(ctx, key, &topic, cache.TopicTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).Preload("Author").First(&topic, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Topic", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *topicRepository) List(ctx context.Context, limit, offset int) ([]*models.Topic, error) {
	var topics []*models.Topic
	if err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&topics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return topics, nil
}

func (r *topicRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Topic{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Topic", id)
	}
	cache.Invalidate(ctx, cache.TopicKey(id))
	return nil
}

func (r *topicRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Topic{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := readDB(r.db).WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetByTopicID returns top-level posts for a topic, newest first.
func (r *postRepository) GetByTopicID(ctx context.Context, topicID uint, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("topic_id = ? AND parent_id IS NULL", topicID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// GetReplyTree fetches the post and its replies level by level up to maxDepth.
// One query per level keeps the fetch bounded regardless of how deep or wide
// the thread grows.
func (r *postRepository) GetReplyTree(ctx context.Context, rootID uint, maxDepth int) (*models.Post, error) {
	if maxDepth <= 0 || maxDepth > MaxReplyDepth {
		maxDepth = MaxReplyDepth
	}

	root, err := r.GetByID(ctx, rootID)
	if err != nil {
		return nil, err
	}

	byID := map[uint]*models.Post{root.ID: root}
	frontier := []uint{root.ID}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var level []*models.Post
		if err := readDB(r.db).WithContext(ctx).
			Preload("Author").
			Where("parent_id IN ?", frontier).
			Order("created_at ASC").
			Find(&level).Error; err != nil {
			return nil, models.NewInternalError(err)
		}

		frontier = frontier[:0]
		for _, reply := range level {
			parent := byID[*reply.ParentID]
			parent.Replies = append(parent.Replies, reply)
			byID[reply.ID] = reply
			frontier = append(frontier, reply.ID)
		}
	}

	return root, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// GetVote returns the voter's standing vote on a post, or nil when none exists.
func (r *postRepository) GetVote(ctx context.Context, postID, voterID uint) (*models.Vote, error) {
	var vote models.Vote
	if err := readDB(r.db).WithContext(ctx).
		Where("post_id = ? AND voter_id = ?", postID, voterID).
		First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &vote, nil
}
