package server

import (
	"net/http"
	"testing"

	"ufit/internal/featureflags"
	"ufit/internal/models"
	"ufit/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestArticlesEndpoint(t *testing.T) {
	s, app := setupServerTest(t)
	admin := createTestUser(t, s, "feedadmin", models.RoleAdmin)
	user := createTestUser(t, s, "feedreader", models.RoleUser)

	body := map[string]any{
		"articles": []map[string]string{
			{"title": "Zone 2 for beginners", "source_url": "https://example.com/zone2"},
		},
	}

	t.Run("Non-admin is rejected", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/admin/articles/ingest", body)
		req.Header.Set("Authorization", bearerFor(t, s, user))
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Admin ingests a batch", func(t *testing.T) {
		req := newTestRequest(t, http.MethodPost, "/api/admin/articles/ingest", body)
		req.Header.Set("Authorization", bearerFor(t, s, admin))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.IngestResult
		decodeBody(t, resp, &result)
		assert.Equal(t, int64(1), result.Inserted)
	})

	t.Run("Disabled flag turns ingestion off", func(t *testing.T) {
		s.featureFlags = featureflags.NewManager("article_ingest=off")
		t.Cleanup(func() { s.featureFlags = featureflags.NewManager("") })

		req := newTestRequest(t, http.MethodPost, "/api/admin/articles/ingest", map[string]any{
			"articles": []map[string]string{
				{"title": "Hidden", "source_url": "https://example.com/hidden"},
			},
		})
		req.Header.Set("Authorization", bearerFor(t, s, admin))
		resp, err := app.Test(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var count int64
		require.NoError(t, s.db.Model(&models.Article{}).
			Where("title = ?", "Hidden").Count(&count).Error)
		assert.Zero(t, count)
	})
}
