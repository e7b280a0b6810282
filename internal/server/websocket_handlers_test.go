package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"ufit/internal/config"
	"ufit/internal/database"
	"ufit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServerTestWithRedis is setupServerTest plus a miniredis-backed client,
// for the ticket and presence paths that need Redis.
func setupServerTestWithRedis(t *testing.T) (*Server, *fiber.App, *miniredis.Miniredis) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret: "test-secret-0123456789abcdef",
		Env:       "test",
	}

	s, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.hub != nil {
			_ = s.hub.Shutdown(context.Background())
		}
		if s.supportHub != nil {
			_ = s.supportHub.Shutdown(context.Background())
		}
	})

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, mr
}

func TestIssueWSTicket(t *testing.T) {
	s, app, mr := setupServerTestWithRedis(t)
	user := createTestUser(t, s, "wsuser", models.RoleUser)
	auth := bearerFor(t, s, user)

	t.Run("Requires authentication", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/ws/ticket", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Issues a short-lived ticket", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/ws/ticket", nil)
		req.Header.Set("Authorization", auth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Ticket    string `json:"ticket"`
			ExpiresIn int    `json:"expires_in"`
		}
		decodeBody(t, resp, &body)
		require.NotEmpty(t, body.Ticket)
		assert.Equal(t, int(wsTicketTTL.Seconds()), body.ExpiresIn)

		// The ticket is stored in Redis keyed to the user with a TTL.
		stored, err := mr.Get("ws_ticket:" + body.Ticket)
		require.NoError(t, err)
		assert.Equal(t, "1", stored)
		assert.Greater(t, mr.TTL("ws_ticket:"+body.Ticket), time.Duration(0))
	})
}

func TestWSTicketAuth(t *testing.T) {
	s, app, mr := setupServerTestWithRedis(t)
	user := createTestUser(t, s, "ticketuser", models.RoleUser)
	auth := bearerFor(t, s, user)

	issueTicket := func(t *testing.T) string {
		t.Helper()
		req := newTestRequest(t, http.MethodPost, "/api/ws/ticket", nil)
		req.Header.Set("Authorization", auth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Ticket string `json:"ticket"`
		}
		decodeBody(t, resp, &body)
		return body.Ticket
	}

	t.Run("Ticket authenticates a plain request", func(t *testing.T) {
		ticket := issueTicket(t)
		req := newTestRequest(t, http.MethodGet, "/api/users/me?ticket="+ticket, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var me models.User
		decodeBody(t, resp, &me)
		assert.Equal(t, user.ID, me.ID)
	})

	t.Run("Ticket is single-use", func(t *testing.T) {
		ticket := issueTicket(t)
		req := newTestRequest(t, http.MethodGet, "/api/users/me?ticket="+ticket, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// The key is gone from Redis after the first use.
		assert.False(t, mr.Exists("ws_ticket:"+ticket))
	})

	t.Run("Expired ticket falls back to other credentials", func(t *testing.T) {
		ticket := issueTicket(t)
		mr.FastForward(wsTicketTTL + time.Second)

		req := newTestRequest(t, http.MethodGet, "/api/users/me?ticket="+ticket, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Invalid ticket on a websocket path is rejected outright", func(t *testing.T) {
		req := newTestRequest(t, http.MethodGet, "/api/ws/?ticket=bogus", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Query token is rejected on websocket paths", func(t *testing.T) {
		token := bearerFor(t, s, user)[len("Bearer "):]
		req := newTestRequest(t, http.MethodGet, "/api/ws/?token="+token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
