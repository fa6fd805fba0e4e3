package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/campus"
	"github.com/trezcool/darasa/core/user"
)

func Test_superApi(t *testing.T) {
	super := createTestUser(t, "", "Ada Super", "adasuper1", "ada@darasa.cd", "supr#Secret1", []string{user.RoleSuperOwner})
	superToken := getToken(t, super)

	t.Run("admin routes require super role", func(t *testing.T) {
		cmp := createTestCampus(t, "Normal School", "normal-school", nil)
		admin := createTestUser(t, cmp.ID, "Norm Admin", "normadmin1", "norm@normal.cd", "norm#Secret1", []string{user.RoleAdminOwner})

		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/campuses", getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var cmp campus.Campus

	t.Run("campus lifecycle", func(t *testing.T) {
		body := marshallObj(t, campus.NewCampus{Name: "Valley Academy", ContactEmail: "office@valley.cd"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/campuses", superToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
		assert.Equal(t, "valley-academy", cmp.Slug)
		assert.Equal(t, campus.StatusTrial, cmp.Status)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/campuses/slug/valley-academy", superToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var bySlug campus.Campus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bySlug))
		assert.Equal(t, cmp.ID, bySlug.ID)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/campuses/slug/no-such-campus", superToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		body = marshallObj(t, StatusRequest{Status: campus.StatusActive})
		req, rec = newAuthRequest(http.MethodPut, "/v1/admin/campuses/"+cmp.ID+"/status", superToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
		assert.Equal(t, campus.StatusActive, cmp.Status)

		body = marshallObj(t, FeatureRequest{Enabled: true})
		req, rec = newAuthRequest(http.MethodPut, "/v1/admin/campuses/"+cmp.ID+"/features/"+campus.FeaturePayments, superToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
		assert.True(t, cmp.Features[campus.FeaturePayments])

		req, rec = newAuthRequest(http.MethodDelete, "/v1/admin/campuses/"+cmp.ID, superToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/v1/admin/campuses/"+cmp.ID+"/restore", superToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("platform stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/stats", superToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var stats PlatformStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Greater(t, stats.Campuses, 0)
		assert.Greater(t, stats.Users, 0)
	})

	t.Run("backup status report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/backup-status", superToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var status BackupStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "never run", status.Status)

		body := marshallObj(t, BackupRunRequest{Status: "ok", Detail: "nightly mongodump"})
		req, rec = newAuthRequest(http.MethodPost, "/v1/admin/backup-runs", superToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/backup-status", superToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "ok", status.Status)
		assert.False(t, status.LastRun.IsZero())
		assert.Greater(t, status.Collections["users"], 0)
	})

	t.Run("invalid backup run status", func(t *testing.T) {
		body := marshallObj(t, BackupRunRequest{Status: "meh"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/backup-runs", superToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
