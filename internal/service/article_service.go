package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"ufit/internal/models"
	"ufit/internal/observability"
	"ufit/internal/repository"
)

// ArticleService handles ingestion and retrieval of external health/news
// articles. Ingestion is idempotent: the same feed item replayed any number
// of times produces exactly one row.
type ArticleService struct {
	articleRepo repository.ArticleRepository
}

// IngestArticleInput is one item from an external feed payload.
type IngestArticleInput struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Content     string     `json:"content"`
	SourceName  string     `json:"source_name"`
	SourceURL   string     `json:"source_url"`
	PublishedAt *time.Time `json:"published_at"`
}

// IngestResult reports how the batch fared.
type IngestResult struct {
	Received int   `json:"received"`
	Inserted int64 `json:"inserted"`
	Skipped  int   `json:"skipped"`
}

func NewArticleService(articleRepo repository.ArticleRepository) *ArticleService {
	return &ArticleService{articleRepo: articleRepo}
}

// sourceHash fingerprints a feed item by source URL and title. Items whose
// hash already exists are dropped at the database level.
func sourceHash(sourceURL, title string) string {
	sum := sha256.Sum256([]byte(sourceURL + "|" + title))
	return hex.EncodeToString(sum[:])
}

// Ingest validates and batch-inserts feed items, deduplicating on source
// hash. Items missing a title or source URL are skipped, not rejected, so a
// partially malformed feed still lands its good items.
func (s *ArticleService) Ingest(ctx context.Context, items []IngestArticleInput) (*IngestResult, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError("empty article batch")
	}

	articles := make([]*models.Article, 0, len(items))
	skipped := 0
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		url := strings.TrimSpace(item.SourceURL)
		if title == "" || url == "" {
			skipped++
			continue
		}
		articles = append(articles, &models.Article{
			Title:       title,
			Summary:     item.Summary,
			Content:     item.Content,
			SourceName:  item.SourceName,
			SourceURL:   url,
			SourceHash:  sourceHash(url, title),
			PublishedAt: item.PublishedAt,
		})
	}
	if len(articles) == 0 {
		return nil, models.NewValidationError("no valid items in article batch")
	}

	inserted, err := s.articleRepo.BatchInsert(ctx, articles)
	if err != nil {
		observability.ArticlesIngestedTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	observability.ArticlesIngestedTotal.WithLabelValues("inserted").Add(float64(inserted))
	duplicates := int64(len(articles)) - inserted
	if duplicates > 0 {
		observability.ArticlesIngestedTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	}

	return &IngestResult{
		Received: len(items),
		Inserted: inserted,
		Skipped:  skipped + int(duplicates),
	}, nil
}

func (s *ArticleService) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	return s.articleRepo.GetByID(ctx, id)
}

func (s *ArticleService) ListArticles(ctx context.Context, limit, offset int) ([]*models.Article, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.articleRepo.List(ctx, limit, offset)
}

func (s *ArticleService) SearchArticles(ctx context.Context, query string, limit, offset int) ([]*models.Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("search query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.articleRepo.Search(ctx, query, limit, offset)
}
