package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/config"
)

const (
	seedAdmin    = "admin"
	seedPassword = "admin-password"
)

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Mode = "production"
	cfg.Database.Driver = config.DriverMemory
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessTokenExpiration = "1h"
	cfg.JWT.Issuer = "saffron-test"
	cfg.Course.DefaultRankLimit = 3
	cfg.Course.StudentEmailDomain = "example.ac.jp"
	cfg.Security.BcryptCost = bcrypt.MinCost
	cfg.Seed.SuperuserUsername = seedAdmin
	cfg.Seed.SuperuserPassword = seedPassword

	ctx := context.Background()
	repos, closeRepos, err := OpenRepositories(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(closeRepos)

	deps, err := BuildDependencies(cfg, repos, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, SeedData(ctx, cfg, deps))
	require.NoError(t, SeedData(ctx, cfg, deps), "seeding twice is harmless")

	router, err := SetupRouter(cfg, deps, zerolog.Nop())
	require.NoError(t, err)

	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.AuthResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &resp))
	return resp.Token.AccessToken
}

func (a *testAPI) register(username string) string {
	a.t.Helper()
	w, _ := a.do(http.MethodPost, "/users", "", gin.H{"username": username, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(username, "password123")
}

func (a *testAPI) createCourse(token, name string, year int, pin string) int64 {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/courses", token, gin.H{"name": name, "year": year, "pin": pin})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var course dto.CourseResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &course))
	return course.ID
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int, code dto.ErrorCode) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
}

func TestPing(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticationErrors(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(http.MethodGet, "/courses", "", nil)
	assertError(t, w, env, http.StatusUnauthorized, dto.ErrorCodeUnauthorized)

	w, env = api.do(http.MethodGet, "/courses", "abc.def.ghi", nil)
	assertError(t, w, env, http.StatusUnauthorized, dto.ErrorCodeInvalidToken)

	w, env = api.do(http.MethodPost, "/auth/login", "", gin.H{"username": seedAdmin, "password": "wrong"})
	assertError(t, w, env, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials)

	w, env = api.do(http.MethodPost, "/users", "", gin.H{"username": "alice", "password": "short"})
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "password")
}

func TestCourseCreationIsStaffOnly(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(seedAdmin, seedPassword)
	student := api.register("b1234567")

	w, env := api.do(http.MethodPost, "/courses", student, gin.H{"name": "Physics", "pin": "1234"})
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	id := api.createCourse(admin, "Physics", 2024, "1234")

	w, env = api.do(http.MethodPost, "/courses", admin, gin.H{"name": "Physics", "year": 2024, "pin": "9999"})
	assertError(t, w, env, http.StatusConflict, dto.ErrorCodeDuplicateCourse)

	w, env = api.do(http.MethodGet, fmt.Sprintf("/courses/%d", id), student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var course dto.CourseResponse
	require.NoError(t, json.Unmarshal(env.Data, &course))
	assert.Equal(t, "Physics", course.Name)
	assert.Equal(t, fmt.Sprintf("admin_of_course_%d", id), course.AdminGroupName)
	assert.Equal(t, 3, course.Config.RankLimit)

	w, env = api.do(http.MethodGet, "/courses/999", student, nil)
	assertError(t, w, env, http.StatusNotFound, dto.ErrorCodeResourceNotFound)

	w, env = api.do(http.MethodGet, "/courses/abc", student, nil)
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
}

func TestJoinAndRankFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(seedAdmin, seedPassword)
	student := api.register("b1234567")
	id := api.createCourse(admin, "Physics", 2024, "1234")
	base := fmt.Sprintf("/courses/%d", id)

	w, env := api.do(http.MethodGet, base+"/labs", student, nil)
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	w, env = api.do(http.MethodPost, base+"/join", student, gin.H{"pin": "0000"})
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeCoursePinMismatch)

	w, _ = api.do(http.MethodPost, base+"/join", student, gin.H{"pin": "1234"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = api.do(http.MethodPost, base+"/join", student, gin.H{"pin": "1234"})
	assertError(t, w, env, http.StatusConflict, dto.ErrorCodeAlreadyJoined)

	w, env = api.do(http.MethodPost, base+"/labs", admin, gin.H{"labs": []gin.H{
		{"name": "LabA", "capacity": 3},
		{"name": "LabB", "capacity": 3},
		{"name": "LabC", "capacity": 3},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var labs []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &labs))
	require.Len(t, labs, 3)

	w, env = api.do(http.MethodPost, base+"/ranks", student, gin.H{"labIds": []int64{labs[0].ID, labs[0].ID}})
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeDuplicateRank)

	w, _ = api.do(http.MethodPost, base+"/ranks", student, gin.H{"labIds": []int64{labs[0].ID, labs[1].ID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = api.do(http.MethodGet, base+"/ranks", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ranks []dto.RankResponse
	require.NoError(t, json.Unmarshal(env.Data, &ranks))
	require.Len(t, ranks, 2)
	assert.Equal(t, 0, ranks[0].Order)
	assert.Equal(t, "LabA", ranks[0].Lab.Name)
	assert.Equal(t, 1, ranks[1].Order)
	assert.Equal(t, "LabB", ranks[1].Lab.Name)

	labPath := fmt.Sprintf("%s/labs/%d", base, labs[0].ID)
	w, env = api.do(http.MethodGet, labPath, student, nil)
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	w, _ = api.do(http.MethodPatch, "/users/me", student, gin.H{"screenName": "alice", "gpa": 3.4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodGet, labPath, student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail dto.LabDetailResponse
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.RankSet, 3)
	require.Len(t, detail.RankSet[0], 1)
	assert.Equal(t, "b1234567", detail.RankSet[0][0].Username)

	w, env = api.do(http.MethodGet, fmt.Sprintf("%s/labs/999", base), student, nil)
	assertError(t, w, env, http.StatusNotFound, dto.ErrorCodeResourceNotFound)

	w, env = api.do(http.MethodGet, base+"/status", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status dto.CourseStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.EqualValues(t, "member", status.Role)
	assert.True(t, status.Requirements.GPA)
	assert.True(t, status.Requirements.RankSubmitted)

	w, _ = api.do(http.MethodDelete, base+"/members/me", student, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = api.do(http.MethodGet, base+"/ranks", student, nil)
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	w, env = api.do(http.MethodDelete, base+"/members/me", student, nil)
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeNotJoined)
}

func TestCourseAdminManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(seedAdmin, seedPassword)
	owner := api.register("b1111111")
	member := api.register("b2222222")
	id := api.createCourse(admin, "Physics", 2024, "1234")
	base := fmt.Sprintf("/courses/%d", id)

	for _, token := range []string{owner, member} {
		w, _ := api.do(http.MethodPost, base+"/join", token, gin.H{"pin": "1234"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := api.do(http.MethodGet, base+"/members", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []dto.MemberResponse
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Len(t, members, 2)
	ids := map[string]int64{}
	for _, m := range members {
		ids[m.User.Username] = m.User.ID
	}

	promote := func(token string, userID int64) (*httptest.ResponseRecorder, envelope) {
		return api.do(http.MethodPut, fmt.Sprintf("%s/admins/%d", base, userID), token, nil)
	}

	w, env = promote(member, ids["b1111111"])
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	w, _ = promote(admin, ids["b1111111"])
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = promote(owner, ids["b1111111"])
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeBadRequest)

	w, env = promote(owner, 999)
	assertError(t, w, env, http.StatusNotFound, dto.ErrorCodeResourceNotFound)

	w, _ = api.do(http.MethodPut, base+"/pin", owner, gin.H{"pin": "5678"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodPatch, base, member, gin.H{"rankLimit": 5})
	assertError(t, w, env, http.StatusForbidden, dto.ErrorCodeForbidden)

	w, env = api.do(http.MethodPatch, base, owner, gin.H{"rankLimit": 0})
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeValidationFailed)

	w, _ = api.do(http.MethodPatch, base, owner, gin.H{"name": "Physics II", "rankLimit": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(http.MethodGet, base+"/admins", member, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Len(t, members, 1)
	assert.Equal(t, "b1111111", members[0].User.Username)

	w, env = api.do(http.MethodDelete, fmt.Sprintf("%s/admins/%d", base, ids["b1111111"]), owner, nil)
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeBadRequest)

	w, env = api.do(http.MethodDelete, fmt.Sprintf("%s/admins/%d", base, ids["b2222222"]), owner, nil)
	assertError(t, w, env, http.StatusBadRequest, dto.ErrorCodeNotAdmin)

	w, _ = api.do(http.MethodDelete, base, owner, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = api.do(http.MethodGet, base, member, nil)
	assertError(t, w, env, http.StatusNotFound, dto.ErrorCodeResourceNotFound)
}

func TestListCourses(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(seedAdmin, seedPassword)
	student := api.register("b1234567")
	physics := api.createCourse(admin, "Physics", 2024, "1234")
	api.createCourse(admin, "Physics", 2025, "1234")
	api.createCourse(admin, "Biology", 2024, "1234")

	w, _ := api.do(http.MethodPost, fmt.Sprintf("/courses/%d/join", physics), student, gin.H{"pin": "1234"})
	require.Equal(t, http.StatusCreated, w.Code)

	list := func(query string) dto.PaginationInfo {
		t.Helper()
		w, env := api.do(http.MethodGet, "/courses"+query, student, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page struct {
			Items      []dto.CourseResponse `json:"items"`
			Pagination dto.PaginationInfo   `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &page))
		return page.Pagination
	}

	assert.EqualValues(t, 3, list("").TotalItems)
	assert.EqualValues(t, 2, list("?year=2024").TotalItems)
	assert.EqualValues(t, 2, list("?search=phys").TotalItems)
	assert.EqualValues(t, 1, list("?joined=true").TotalItems)

	page := list("?page=2&size=2")
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 2, page.TotalPages)
}
