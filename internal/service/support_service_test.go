package service

import (
	"context"
	"sync"
	"testing"

	"ufit/internal/database"
	"ufit/internal/models"
	"ufit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingSink captures published notifications for assertions.
type recordingSink struct {
	mu       sync.Mutex
	userMsgs map[uint][]string
	sessions map[uint][]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		userMsgs: make(map[uint][]string),
		sessions: make(map[uint][]string),
	}
}

func (r *recordingSink) PublishUser(_ context.Context, userID uint, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userMsgs[userID] = append(r.userMsgs[userID], payload)
	return nil
}

func (r *recordingSink) PublishSupportEvent(_ context.Context, sessionID uint, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], payload)
	return nil
}

func (r *recordingSink) userCount(userID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userMsgs[userID])
}

func setupSupportTest(t *testing.T) (*gorm.DB, *SupportService, *recordingSink) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	sink := newRecordingSink()
	svc := NewSupportService(
		repository.NewSupportRepository(db),
		repository.NewUserRepository(db),
		sink,
	)
	return db, svc, sink
}

func createRoleUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestSupportService_CreateSession(t *testing.T) {
	db, svc, sink := setupSupportTest(t)
	ctx := context.Background()

	user := createRoleUser(t, db, "requester", models.RoleUser)

	t.Run("creates pending session and notifies", func(t *testing.T) {
		session, err := svc.CreateSession(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SupportPending, session.Status)
		assert.Nil(t, session.ModeratorID)
		assert.Equal(t, 1, sink.userCount(user.ID))
	})

	t.Run("open session is returned instead of a duplicate", func(t *testing.T) {
		first, err := svc.CreateSession(ctx, user.ID)
		require.NoError(t, err)
		second, err := svc.CreateSession(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&models.ChatSupportSession{}).Where("user_id = ?", user.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	for _, role := range []models.Role{models.RoleModerator, models.RoleAdmin, models.RoleStaff, models.RoleDev} {
		t.Run("elevated role "+string(role)+" rejected", func(t *testing.T) {
			elevated := createRoleUser(t, db, "elev_"+string(role), role)
			_, err := svc.CreateSession(ctx, elevated.ID)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeInvalidState))
		})
	}

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, 9999)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestSupportService_AssignModerator(t *testing.T) {
	db, svc, _ := setupSupportTest(t)
	ctx := context.Background()

	user := createRoleUser(t, db, "asker", models.RoleUser)
	mod := createRoleUser(t, db, "mod", models.RoleModerator)
	mod2 := createRoleUser(t, db, "mod2", models.RoleAdmin)
	regular := createRoleUser(t, db, "regular", models.RoleUser)

	session, err := svc.CreateSession(ctx, user.ID)
	require.NoError(t, err)

	t.Run("pending to active", func(t *testing.T) {
		got, err := svc.AssignModerator(ctx, session.ID, mod.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SupportActive, got.Status)
		require.NotNil(t, got.ModeratorID)
		assert.Equal(t, mod.ID, *got.ModeratorID)
	})

	t.Run("reassigning same moderator is idempotent", func(t *testing.T) {
		got, err := svc.AssignModerator(ctx, session.ID, mod.ID)
		require.NoError(t, err)
		assert.Equal(t, mod.ID, *got.ModeratorID)
	})

	t.Run("reassigning a different moderator is allowed", func(t *testing.T) {
		got, err := svc.AssignModerator(ctx, session.ID, mod2.ID)
		require.NoError(t, err)
		assert.Equal(t, mod2.ID, *got.ModeratorID)
		assert.Equal(t, models.SupportActive, got.Status)
	})

	t.Run("non-moderating role rejected", func(t *testing.T) {
		_, err := svc.AssignModerator(ctx, session.ID, regular.ID)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))
	})

	t.Run("missing session is NotFound", func(t *testing.T) {
		_, err := svc.AssignModerator(ctx, 9999, mod.ID)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("missing moderator is NotFound", func(t *testing.T) {
		_, err := svc.AssignModerator(ctx, session.ID, 9999)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})

	t.Run("closed session cannot be assigned", func(t *testing.T) {
		_, err := svc.CloseSession(ctx, session.ID)
		require.NoError(t, err)
		_, err = svc.AssignModerator(ctx, session.ID, mod.ID)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))
	})
}

func TestSupportService_FullLifecycle(t *testing.T) {
	db, svc, sink := setupSupportTest(t)
	ctx := context.Background()

	user := createRoleUser(t, db, "lifecycle_user", models.RoleUser)
	mod := createRoleUser(t, db, "lifecycle_mod", models.RoleModerator)

	session, err := svc.CreateSession(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SupportPending, session.Status)

	t.Run("user cannot message while pending", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, user.ID, "anyone there?", false)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))
	})

	_, err = svc.AssignModerator(ctx, session.ID, mod.ID)
	require.NoError(t, err)

	t.Run("moderator message lands tagged", func(t *testing.T) {
		msg, err := svc.PostMessage(ctx, mod.ID, "how can I help?", true)
		require.NoError(t, err)
		assert.True(t, msg.FromModerator)
		assert.Equal(t, session.ID, msg.SessionID)

		got, err := svc.GetSession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.True(t, got.Messages[0].FromModerator)
	})

	t.Run("user reply lands untagged", func(t *testing.T) {
		msg, err := svc.PostMessage(ctx, user.ID, "billing question", false)
		require.NoError(t, err)
		assert.False(t, msg.FromModerator)
	})

	t.Run("both participants are notified of messages", func(t *testing.T) {
		assert.Greater(t, sink.userCount(user.ID), 1)
		assert.Greater(t, sink.userCount(mod.ID), 0)
	})

	closed, err := svc.CloseSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SupportClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	t.Run("no messages after close from either side", func(t *testing.T) {
		_, err := svc.PostMessage(ctx, user.ID, "one more thing", false)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))

		_, err = svc.PostMessage(ctx, mod.ID, "session over", true)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))
	})

	t.Run("closing again is a no-op that still notifies", func(t *testing.T) {
		before := sink.userCount(user.ID)
		again, err := svc.CloseSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SupportClosed, again.Status)
		assert.Equal(t, before+1, sink.userCount(user.ID))
	})

	t.Run("closing a missing session is NotFound", func(t *testing.T) {
		_, err := svc.CloseSession(ctx, 9999)
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeNotFound))
	})
}

func TestSupportService_InitiateAdminChat(t *testing.T) {
	db, svc, _ := setupSupportTest(t)
	ctx := context.Background()

	user := createRoleUser(t, db, "contacted", models.RoleUser)
	admin := createRoleUser(t, db, "the_admin", models.RoleAdmin)
	mod := createRoleUser(t, db, "not_admin", models.RoleModerator)

	t.Run("session born active with first message", func(t *testing.T) {
		session, err := svc.InitiateAdminChat(ctx, user.ID, admin.ID, "please review your account")
		require.NoError(t, err)
		assert.Equal(t, models.SupportActive, session.Status)
		assert.True(t, session.AdminInitiated)
		require.NotNil(t, session.ModeratorID)
		assert.Equal(t, admin.ID, *session.ModeratorID)

		got, err := svc.GetSession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.True(t, got.Messages[0].FromModerator)
		assert.Equal(t, admin.ID, got.Messages[0].SenderID)
	})

	t.Run("non-admin cannot initiate", func(t *testing.T) {
		_, err := svc.InitiateAdminChat(ctx, user.ID, mod.ID, "hi")
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeInvalidState))
	})

	t.Run("empty message rejected", func(t *testing.T) {
		_, err := svc.InitiateAdminChat(ctx, user.ID, admin.ID, "")
		require.Error(t, err)
		assert.True(t, models.HasCode(err, models.CodeValidation))
	})
}

func TestSupportService_ModeratorSessionResolution(t *testing.T) {
	db, svc, _ := setupSupportTest(t)
	ctx := context.Background()

	u1 := createRoleUser(t, db, "res_u1", models.RoleUser)
	u2 := createRoleUser(t, db, "res_u2", models.RoleUser)
	mod := createRoleUser(t, db, "res_mod", models.RoleModerator)

	s1, err := svc.CreateSession(ctx, u1.ID)
	require.NoError(t, err)
	s2, err := svc.CreateSession(ctx, u2.ID)
	require.NoError(t, err)

	_, err = svc.AssignModerator(ctx, s1.ID, mod.ID)
	require.NoError(t, err)
	_, err = svc.AssignModerator(ctx, s2.ID, mod.ID)
	require.NoError(t, err)

	// Moderator carries two active sessions; message resolves to one of them
	msg, err := svc.PostMessage(ctx, mod.ID, "with you shortly", true)
	require.NoError(t, err)
	assert.Contains(t, []uint{s1.ID, s2.ID}, msg.SessionID)
}
