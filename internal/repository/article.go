package repository

import (
	"context"
	"errors"
	"strings"

	"ufit/internal/cache"
	"ufit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ArticleRepository defines persistence operations for ingested articles.
type ArticleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Article, error)
	List(ctx context.Context, limit, offset int) ([]*models.Article, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Article, error)
	BatchInsert(ctx context.Context, articles []*models.Article) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type articleRepository struct {
	db *gorm.DB
}

// NewArticleRepository returns a new ArticleRepository implementation.
func NewArticleRepository(db *gorm.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) GetByID(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	key := cache.ArticleKey(id)

	err := cache.Aside(ctx, key, &article, cache.ArticleTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&article, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Article", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) List(ctx context.Context, limit, offset int) ([]*models.Article, error) {
	var articles []*models.Article
	if err := readDB(r.db).WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return articles, nil
}

func (r *articleRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Article, error) {
	var articles []*models.Article
	pattern := "%" + strings.ToLower(query) + "%"
	if err := readDB(r.db).WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return articles, nil
}

// BatchInsert inserts articles, silently dropping rows whose source hash
// already exists. Returns the number of rows actually inserted.
func (r *articleRepository) BatchInsert(ctx context.Context, articles []*models.Article) (int64, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "source_hash"}},
			DoNothing: true,
		}).
		Create(&articles)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidateArticles(ctx)
	}
	return res.RowsAffected, nil
}

func (r *articleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Article{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
