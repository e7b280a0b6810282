// Package seed provides helpers to create demo and test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"ufit/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and by tests.
type Factory struct {
	db   *gorm.DB
	rng  *rand.Rand
	opts Options
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for seeding
	return &Factory{
		db:   db,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		opts: opts,
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Role:     models.RoleUser,
		Bio:      gofakeit.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	// bcrypt dominates seeding time, so dev fast mode skips it
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a post in the given topic. A nil parent
// makes a top-level post, otherwise a reply.
func (f *Factory) CreatePost(author *models.User, topic *models.Topic, parent *models.Post, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		TopicID:  topic.ID,
		AuthorID: author.ID,
		Content:  gofakeit.Paragraph(1, 3, 8, "\n"),
	}
	if parent != nil {
		post.ParentID = &parent.ID
		post.Content = gofakeit.Sentence(12)
	}

	// spread created_at over the recent past for realistic ordering
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 60
	}
	post.CreatedAt = time.Now().
		Add(-time.Duration(f.rng.Intn(maxDays*24)) * time.Hour).
		Add(-time.Duration(f.rng.Intn(60)) * time.Minute)

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateVote persists a vote from voter on post and bumps the post counter.
// Callers recompute author karma afterwards.
func (f *Factory) CreateVote(voter *models.User, post *models.Post, upvote bool) error {
	vote := &models.Vote{
		PostID:  post.ID,
		VoterID: voter.ID,
		Upvote:  upvote,
	}
	if err := f.db.Create(vote).Error; err != nil {
		return err
	}

	column := "upvotes"
	if !upvote {
		column = "downvotes"
	}
	return f.db.Model(&models.Post{}).
		Where("id = ?", post.ID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

// CreateArticle constructs and persists a fake health article.
func (f *Factory) CreateArticle(overrides ...func(*models.Article)) (*models.Article, error) {
	published := gofakeit.DateRange(time.Now().AddDate(0, -6, 0), time.Now())
	article := &models.Article{
		Title:       gofakeit.Sentence(6),
		Summary:     gofakeit.Sentence(15),
		Content:     gofakeit.Paragraph(3, 4, 10, "\n\n"),
		SourceName:  gofakeit.Company(),
		SourceURL:   gofakeit.URL(),
		PublishedAt: &published,
	}

	for _, override := range overrides {
		override(article)
	}
	sum := sha256.Sum256([]byte(article.SourceURL + "|" + article.Title))
	article.SourceHash = hex.EncodeToString(sum[:])

	if err := f.db.Create(article).Error; err != nil {
		return nil, err
	}
	return article, nil
}

// CreateSupportSession persists a support session between user and moderator
// in the given status, with a short back-and-forth message log for non-pending
// sessions.
func (f *Factory) CreateSupportSession(user, moderator *models.User, status models.SupportStatus) (*models.ChatSupportSession, error) {
	session := &models.ChatSupportSession{
		UserID: user.ID,
		Status: status,
	}
	if status != models.SupportPending {
		session.ModeratorID = &moderator.ID
	}
	if status == models.SupportClosed {
		closed := time.Now().Add(-time.Duration(f.rng.Intn(72)) * time.Hour)
		session.ClosedAt = &closed
	}
	if err := f.db.Create(session).Error; err != nil {
		return nil, err
	}

	if status == models.SupportPending {
		return session, nil
	}
	for i := 0; i < 2+f.rng.Intn(4); i++ {
		msg := &models.SupportMessage{
			SessionID:     session.ID,
			SenderID:      user.ID,
			FromModerator: i%2 == 1,
			Content:       gofakeit.Sentence(10),
		}
		if msg.FromModerator {
			msg.SenderID = moderator.ID
		}
		if err := f.db.Create(msg).Error; err != nil {
			return nil, err
		}
	}
	return session, nil
}
