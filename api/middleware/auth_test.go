package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/pkg/auth"
	"github.com/bozorchi/shop-backend/pkg/config"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeUserSource struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserSource) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAdminSource struct {
	admins map[uuid.UUID]*models.Admin
}

func (f *fakeAdminSource) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	if a, ok := f.admins[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testResolver(t *testing.T, user *models.User) *actors.Resolver {
	t.Helper()
	users := &fakeUserSource{users: map[uuid.UUID]*models.User{}}
	if user != nil {
		users.users[user.ID] = user
	}
	resolver, err := actors.NewResolver(users, &fakeAdminSource{})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func testJWT() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:      "access-secret",
		RefreshSecret:     "refresh-secret",
		Issuer:            "bozorchi-test",
		AccessTTLMinutes:  15,
		RefreshTTLMinutes: 60,
	}
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	handler := Authenticate(testJWT(), testResolver(t, nil), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	handler := Authenticate(testJWT(), testResolver(t, nil), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAuthenticateSeedsActor(t *testing.T) {
	cfg := testJWT()
	user := &models.User{ID: uuid.New(), TokenVersion: 2}
	token := mintTestToken(t, cfg, user.ID, user.TokenVersion)

	var captured *actors.Actor
	handler := Authenticate(cfg, testResolver(t, user), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured == nil || captured.ID() != user.ID {
		t.Fatalf("expected actor in context")
	}
	if captured.Kind() != actors.KindUser {
		t.Fatalf("expected user kind got %s", captured.Kind())
	}
}

func TestAuthenticateRejectsStaleVersion(t *testing.T) {
	cfg := testJWT()
	user := &models.User{ID: uuid.New(), TokenVersion: 3}
	token := mintTestToken(t, cfg, user.ID, 2)

	handler := Authenticate(cfg, testResolver(t, user), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAuthenticateDeletedAccountNotFound(t *testing.T) {
	cfg := testJWT()
	token := mintTestToken(t, cfg, uuid.New(), 1)

	handler := Authenticate(cfg, testResolver(t, nil), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestRequireUserBlocksAdmin(t *testing.T) {
	admin := &actors.Actor{Admin: &models.Admin{ID: uuid.New(), TokenVersion: 1}}
	handler := RequireUser(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), admin))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireWorkerAllowsWorkerUser(t *testing.T) {
	worker := &actors.Actor{User: &models.User{ID: uuid.New(), TokenVersion: 1, IsWorker: true}}
	handler := RequireWorker(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithActor(req.Context(), worker))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, actorID uuid.UUID, version int) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.TokenPayload{ActorID: actorID, TokenVersion: version})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
