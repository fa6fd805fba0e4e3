package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/user"
)

func Test_userApi(t *testing.T) {
	cmp := createTestCampus(t, "Hillcrest Academy", "hillcrest", nil)
	admin := createTestUser(t, cmp.ID, "Alice Admin", "aliceadmin", "alice@hillcrest.cd", "admin#Secret1", []string{user.RoleAdminOwner})
	teacher := createTestUser(t, cmp.ID, "Tom Teacher", "tomteacher", "tom@hillcrest.cd", "teach#Secret1", []string{user.RoleTeacher})
	student := createTestUser(t, cmp.ID, "Sam Student", "samstudent", "sam@hillcrest.cd", "study#Secret1", []string{user.RoleStudent})

	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	t.Run("login ok", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Username: "tomteacher", Password: "teach#Secret1"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)

		// login bumps LastLogin
		usr, err := user.NewService(usrRepo, nil).GetByID(req.Context(), teacher.ID)
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})

	t.Run("login bad credentials", func(t *testing.T) {
		body := marshallObj(t, LoginRequest{Username: "tomteacher", Password: "wrong"})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "authentication failed", resp.Error)
	})

	t.Run("query requires token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users")
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var resp httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, errMissingToken, resp)
	})

	t.Run("query requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", studentToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		var resp httpErr
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "permission denied", resp.Error)
	})

	t.Run("query scoped to campus", func(t *testing.T) {
		other := createTestCampus(t, "Lakeside School", "lakeside-u", nil)
		createTestUser(t, other.ID, "Olga Other", "olgaother", "olga@lakeside.cd", "other#Secret1", []string{user.RoleTeacher})

		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		for _, usr := range resp {
			assert.Equal(t, cmp.ID, usr.CampusID)
		}
	})

	t.Run("register forces campus", func(t *testing.T) {
		other := createTestCampus(t, "Elsewhere High", "elsewhere", nil)
		body := marshallObj(t, user.NewUser{
			Name:            "Nina New",
			CampusID:        other.ID, // ignored for campus admins
			Username:        "ninanew1",
			Email:           "nina@hillcrest.cd",
			Password:        "fresh#Secret1",
			PasswordConfirm: "fresh#Secret1",
			Roles:           []string{user.RoleStudent},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, cmp.ID, resp.CampusID)
	})

	t.Run("register cannot exceed role ceiling", func(t *testing.T) {
		body := marshallObj(t, user.NewUser{
			Name:            "Eve Escalate",
			Username:        "eveescal1",
			Email:           "eve@hillcrest.cd",
			Password:        "sneak#Secret1",
			PasswordConfirm: "sneak#Secret1",
			Roles:           []string{user.RoleSuperOwner},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password reset always succeeds", func(t *testing.T) {
		body := marshallObj(t, PasswordResetRequest{Email: "unknown@nowhere.cd"})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SuccessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Success, "an email will arrive in your inbox shortly")
	})

	t.Run("token refresh", func(t *testing.T) {
		body := marshallObj(t, LoginResponse{Token: studentToken})
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", studentToken, body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("retrieve self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+student.ID, studentToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, student.ID, resp.ID)
	})

	t.Run("student cannot retrieve others", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+teacher.ID, studentToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("campus admin cannot reach other campus", func(t *testing.T) {
		other := createTestCampus(t, "Far Campus", "far-campus", nil)
		outsider := createTestUser(t, other.ID, "Out Sider", "outsider1", "out@far.cd", "far#Secret1", []string{user.RoleStudent})

		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+outsider.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("admin cannot delete self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
