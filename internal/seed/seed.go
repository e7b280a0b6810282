package seed

import (
	"fmt"
	"log"

	"ufit/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	NumArticles int
	MaxDays     int
	ShouldClean bool
	SkipBcrypt  bool
}

// Seed populates the database with demo data: users across all roles, the
// built-in topics, posts with reply threads and votes, ingested articles, and
// support sessions in every lifecycle state.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("starting database seeding with %d users and %d posts", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("warning: could not clear all existing data, continuing anyway")
		}
	}

	f := NewFactory(db, opts)

	users, moderators, err := createUsers(f, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users (%d moderators)", len(users), len(moderators))

	if err := Topics(db); err != nil {
		return fmt.Errorf("failed to seed built-in topics: %w", err)
	}
	var topics []models.Topic
	if err := db.Find(&topics).Error; err != nil {
		return err
	}
	log.Printf("%d topics available", len(topics))

	posts, err := createThreads(f, users, topics, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	votes, err := castVotes(f, users, posts)
	if err != nil {
		return fmt.Errorf("failed to cast votes: %w", err)
	}
	log.Printf("cast %d votes", votes)

	if err := recomputeKarma(db); err != nil {
		return fmt.Errorf("failed to recompute karma: %w", err)
	}

	numArticles := opts.NumArticles
	if numArticles <= 0 {
		numArticles = 25
	}
	for i := 0; i < numArticles; i++ {
		if _, err := f.CreateArticle(); err != nil {
			return fmt.Errorf("failed to create articles: %w", err)
		}
	}
	log.Printf("created %d articles", numArticles)

	if err := createSupportSessions(f, users, moderators); err != nil {
		return fmt.Errorf("failed to create support sessions: %w", err)
	}

	log.Println("database seeding completed")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("clearing existing data")
	sql := `TRUNCATE TABLE support_messages, chat_support_sessions, votes, posts, topics, articles, password_reset_tokens, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

// createUsers makes one admin, a couple of moderators, and regular users.
func createUsers(f *Factory, count int) (users, moderators []*models.User, err error) {
	if count < 5 {
		count = 5
	}

	admin, err := f.CreateUser(func(u *models.User) {
		u.Username = "ufit_admin"
		u.Email = "admin@ufit.local"
		u.Role = models.RoleAdmin
	})
	if err != nil {
		return nil, nil, err
	}
	moderators = append(moderators, admin)

	for i := 0; i < 2; i++ {
		mod, err := f.CreateUser(func(u *models.User) {
			u.Role = models.RoleModerator
		})
		if err != nil {
			return nil, nil, err
		}
		moderators = append(moderators, mod)
	}

	for i := 0; i < count-3; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, nil, err
		}
		users = append(users, user)
	}
	return users, moderators, nil
}

// createThreads creates top-level posts and hangs shallow reply trees off
// roughly half of them.
func createThreads(f *Factory, users []*models.User, topics []models.Topic, count int) ([]*models.Post, error) {
	if count <= 0 {
		count = 50
	}

	var posts []*models.Post
	for i := 0; i < count; i++ {
		author := users[f.rng.Intn(len(users))]
		topic := &topics[f.rng.Intn(len(topics))]

		root, err := f.CreatePost(author, topic, nil)
		if err != nil {
			return nil, err
		}
		posts = append(posts, root)

		if f.rng.Intn(2) == 0 {
			continue
		}
		parent := root
		for depth := 0; depth < 1+f.rng.Intn(3); depth++ {
			replier := users[f.rng.Intn(len(users))]
			reply, err := f.CreatePost(replier, topic, parent)
			if err != nil {
				return nil, err
			}
			posts = append(posts, reply)
			parent = reply
		}
	}
	return posts, nil
}

// castVotes has each user vote on a random sample of posts they did not write.
// Roughly four in five votes are upvotes.
func castVotes(f *Factory, users []*models.User, posts []*models.Post) (int, error) {
	count := 0
	for _, voter := range users {
		for _, post := range posts {
			if post.AuthorID == voter.ID || f.rng.Intn(4) != 0 {
				continue
			}
			if err := f.CreateVote(voter, post, f.rng.Intn(5) != 0); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// recomputeKarma overwrites every user's karma from their received votes,
// floor(upvotes/3) - floor(downvotes/5), matching the production formula.
func recomputeKarma(db *gorm.DB) error {
	return db.Exec(`
		UPDATE users SET karma = COALESCE((
			SELECT SUM(p.upvotes) / 3 - SUM(p.downvotes) / 5
			FROM posts p WHERE p.author_id = users.id
		), 0)
	`).Error
}

// createSupportSessions covers the whole lifecycle: a pending request in the
// queue, an active conversation, and a few closed ones.
func createSupportSessions(f *Factory, users, moderators []*models.User) error {
	if len(users) < 5 || len(moderators) == 0 {
		return nil
	}

	if _, err := f.CreateSupportSession(users[0], nil, models.SupportPending); err != nil {
		return err
	}
	if _, err := f.CreateSupportSession(users[1], moderators[f.rng.Intn(len(moderators))], models.SupportActive); err != nil {
		return err
	}
	for i := 2; i < 5; i++ {
		if _, err := f.CreateSupportSession(users[i], moderators[f.rng.Intn(len(moderators))], models.SupportClosed); err != nil {
			return err
		}
	}
	return nil
}
