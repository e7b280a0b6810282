package seed

import (
	"testing"

	"ufit/internal/database"
	"ufit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestTopicsIdempotent(t *testing.T) {
	db := setupSeedTest(t)

	t.Run("no users means no topics yet", func(t *testing.T) {
		require.NoError(t, Topics(db))

		var count int64
		require.NoError(t, db.Model(&models.Topic{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	f := NewFactory(db, Options{SkipBcrypt: true})
	admin, err := f.CreateUser(func(u *models.User) { u.Role = models.RoleAdmin })
	require.NoError(t, err)

	t.Run("seeds every built-in once", func(t *testing.T) {
		require.NoError(t, Topics(db))
		require.NoError(t, Topics(db))

		var topics []models.Topic
		require.NoError(t, db.Find(&topics).Error)
		require.Len(t, topics, len(BuiltInTopics))
		for _, topic := range topics {
			assert.Equal(t, admin.ID, topic.AuthorID)
		}
	})
}

func TestSeedPopulatesAllDomains(t *testing.T) {
	db := setupSeedTest(t)

	err := Seed(db, Options{
		NumUsers:    8,
		NumPosts:    20,
		NumArticles: 5,
		SkipBcrypt:  true,
	})
	require.NoError(t, err)

	var userCount, topicCount, postCount, articleCount, sessionCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Topic{}).Count(&topicCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Article{}).Count(&articleCount).Error)
	require.NoError(t, db.Model(&models.ChatSupportSession{}).Count(&sessionCount).Error)

	assert.EqualValues(t, 8, userCount)
	assert.EqualValues(t, len(BuiltInTopics), topicCount)
	assert.GreaterOrEqual(t, postCount, int64(20))
	assert.EqualValues(t, 5, articleCount)
	assert.EqualValues(t, 5, sessionCount)

	t.Run("exactly one admin", func(t *testing.T) {
		var admins int64
		require.NoError(t, db.Model(&models.User{}).
			Where("role = ?", models.RoleAdmin).Count(&admins).Error)
		assert.EqualValues(t, 1, admins)
	})

	t.Run("vote counters match vote rows", func(t *testing.T) {
		var voteRows, counted int64
		require.NoError(t, db.Model(&models.Vote{}).Count(&voteRows).Error)

		var sums struct {
			Up   int64
			Down int64
		}
		require.NoError(t, db.Model(&models.Post{}).
			Select("COALESCE(SUM(upvotes),0) AS up, COALESCE(SUM(downvotes),0) AS down").
			Scan(&sums).Error)
		counted = sums.Up + sums.Down
		assert.Equal(t, voteRows, counted)
	})

	t.Run("support lifecycle covered", func(t *testing.T) {
		for _, status := range []models.SupportStatus{
			models.SupportPending, models.SupportActive, models.SupportClosed,
		} {
			var n int64
			require.NoError(t, db.Model(&models.ChatSupportSession{}).
				Where("status = ?", status).Count(&n).Error)
			assert.Positive(t, n, "status %s", status)
		}
	})
}
