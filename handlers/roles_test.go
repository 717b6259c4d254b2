package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/claims"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/database"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roleassign"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/supporters"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/users"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/middleware"
)

// claimsToken implements middleware.Token over a plain map.
type claimsToken struct {
	data map[string]interface{}
}

func (t *claimsToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t.data
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// mapVerifier resolves bearer tokens from a fixed table.
type mapVerifier struct {
	tokens map[string]map[string]interface{}
}

func (m *mapVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	data, ok := m.tokens[raw]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return &claimsToken{data: data}, nil
}

type rolesFixture struct {
	engine   *gin.Engine
	userRepo *users.MemoryUserRepository
	spRepo   *supporters.MemoryRepository
}

func newRolesFixture(t *testing.T) *rolesFixture {
	t.Helper()
	userRepo := users.NewMemoryUserRepository()
	spRepo := supporters.NewMemoryRepository()
	svc := roleassign.NewService(userRepo, spRepo, claims.NewMemoryMirror(), nil, database.NewMutexTxRunner())

	ver := &mapVerifier{tokens: map[string]map[string]interface{}{
		"admin-token": {"sub": "admin-1", "role": "admin"},
		"user-token":  {"sub": "user-1", "role": "user"},
	}}

	g := gin.New()
	api := g.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(ver, nil))
	NewRoleHandler(svc, users.NewService(userRepo)).Register(api)
	return &rolesFixture{engine: g, userRepo: userRepo, spRepo: spRepo}
}

func (f *rolesFixture) seedUser(t *testing.T, u *models.User) {
	t.Helper()
	if _, err := f.userRepo.UpsertBySub(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (f *rolesFixture) seedSupporter(t *testing.T, slug, owner string) {
	t.Helper()
	sp := &supporters.Supporter{Slug: slug, Name: slug, OwnerUserID: owner, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := f.spRepo.Create(context.Background(), sp); err != nil {
		t.Fatalf("seed supporter: %v", err)
	}
}

func (f *rolesFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAssignRole_AdminGrantsOwnership(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "admin-1", Email: "admin@example.com", Role: "admin"})
	f.seedUser(t, &models.User{Sub: "user-1", Email: "u1@example.com", Role: "user"})
	f.seedSupporter(t, "enoodle", "")

	body := `{"uid":"user-1","role":"supporterOwner","ownedSupporterIds":["enoodle"]}`
	w := f.do(http.MethodPost, "/api/v1/roles/assign", "admin-token", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "user-1")
	assert.Contains(t, resp["message"], "supporterOwner")

	u, err := f.userRepo.GetBySub(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "supporter", u.Role)
	assert.Equal(t, []string{"enoodle"}, u.OwnedSupporterIDs)

	sp, err := f.spRepo.GetBySlug(context.Background(), "enoodle")
	require.NoError(t, err)
	assert.Equal(t, "user-1", sp.OwnerUserID)
}

func TestAssignRole_PlainUserForbidden(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "user-1", Email: "u1@example.com", Role: "user"})
	f.seedSupporter(t, "enoodle", "")

	body := `{"uid":"user-1","role":"supporterOwner","ownedSupporterIds":["enoodle"]}`
	w := f.do(http.MethodPost, "/api/v1/roles/assign", "user-token", body)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAssignRole_NoToken(t *testing.T) {
	f := newRolesFixture(t)
	w := f.do(http.MethodPost, "/api/v1/roles/assign", "", `{"uid":"x","role":"admin"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAssignRole_TargetMissing(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "admin-1", Email: "admin@example.com", Role: "admin"})

	w := f.do(http.MethodPost, "/api/v1/roles/assign", "admin-token", `{"uid":"ghost","role":"admin"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignRole_BadPayload(t *testing.T) {
	f := newRolesFixture(t)
	w := f.do(http.MethodPost, "/api/v1/roles/assign", "admin-token", `{"uid":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignRole_UnknownRole(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "admin-1", Email: "admin@example.com", Role: "admin"})

	w := f.do(http.MethodPost, "/api/v1/roles/assign", "admin-token", `{"uid":"admin-1","role":"superuser"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchUsers_AdminOnly(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "admin-1", Email: "admin@example.com", Role: "admin"})
	f.seedUser(t, &models.User{Sub: "user-1", Email: "u1@example.com", Role: "user"})

	w := f.do(http.MethodGet, "/api/v1/roles/users?q=u1@example.com", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "user-1", resp.Users[0].Sub)

	// non-admins are shut out at the route
	w = f.do(http.MethodGet, "/api/v1/roles/users?q=u1@example.com", "user-token", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetSupporterOwner(t *testing.T) {
	f := newRolesFixture(t)
	f.seedUser(t, &models.User{Sub: "admin-1", Email: "admin@example.com", Role: "admin"})
	f.seedUser(t, &models.User{Sub: "owner-1", Email: "owner@example.com", Name: "Owner One", Role: "supporter"})
	f.seedSupporter(t, "lucky-market", "owner-1")

	w := f.do(http.MethodGet, "/api/v1/roles/supporters/lucky-market/owner", "admin-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info roleassign.OwnerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "lucky-market", info.SupporterID)
	assert.Equal(t, "owner-1", info.OwnerUserID)
	require.NotNil(t, info.Owner)
	assert.Equal(t, "Owner One", info.Owner.Name)

	// unknown entity
	w = f.do(http.MethodGet, "/api/v1/roles/supporters/ghost/owner", "admin-token", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	// non-admin
	w = f.do(http.MethodGet, "/api/v1/roles/supporters/lucky-market/owner", "user-token", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}
