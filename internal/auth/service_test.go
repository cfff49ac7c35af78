package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/users"
	pkgauth "github.com/bozorchi/shop-backend/pkg/auth"
	"github.com/bozorchi/shop-backend/pkg/config"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/redis"
	"github.com/bozorchi/shop-backend/pkg/security"
)

type stubUsers struct {
	byID    map[uuid.UUID]*models.User
	byPhone map[string]*models.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[uuid.UUID]*models.User{}, byPhone: map[string]*models.User{}}
}

func (s *stubUsers) add(u *models.User) {
	s.byID[u.ID] = u
	s.byPhone[u.Phone] = u
}

func (s *stubUsers) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.add(user)
	return user, nil
}

func (s *stubUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	if u, ok := s.byPhone[phone]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := s.byID[id]; ok {
		u.LastLoginAt = &at
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (s *stubUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	u.TokenVersion++
	return nil
}

type stubAdmins struct {
	admin *models.Admin
}

func (s *stubAdmins) First(context.Context) (*models.Admin, error) {
	if s.admin == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.admin, nil
}

func (s *stubAdmins) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	if s.admin != nil && s.admin.ID == id {
		return s.admin, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAdmins) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if s.admin == nil || s.admin.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.admin.LastLoginAt = &at
	return nil
}

func (s *stubAdmins) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if s.admin == nil || s.admin.ID != id {
		return gorm.ErrRecordNotFound
	}
	s.admin.PasswordHash = hash
	s.admin.TokenVersion++
	return nil
}

type stubCodes struct {
	values   map[string]string
	lastCode string
}

func newStubCodes() *stubCodes {
	return &stubCodes{values: map[string]string{}}
}

func (s *stubCodes) StorePendingRegistration(_ context.Context, code, payload string, _ time.Duration) error {
	s.values[code] = payload
	s.lastCode = code
	return nil
}

func (s *stubCodes) GetPendingRegistration(_ context.Context, code string) (string, error) {
	if payload, ok := s.values[code]; ok {
		return payload, nil
	}
	return "", redis.Nil
}

func (s *stubCodes) DeletePendingRegistration(_ context.Context, code string) error {
	delete(s.values, code)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:      "access-secret-for-tests",
			RefreshSecret:     "refresh-secret-for-tests",
			Issuer:            "bozorchi-test",
			AccessTTLMinutes:  15,
			RefreshTTLMinutes: 60,
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Verification: config.VerificationConfig{CodeTTL: time.Minute, CodeLength: 4},
		Developer:    config.DeveloperConfig{Phone: "+998900000001", Key: "dev-master-key"},
	}
}

type authFixture struct {
	svc    Service
	cfg    *config.Config
	users  *stubUsers
	admins *stubAdmins
	codes  *stubCodes
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := testConfig()
	userStub := newStubUsers()
	adminStub := &stubAdmins{admin: &models.Admin{ID: uuid.New(), Phone: cfg.Developer.Phone, TokenVersion: 1}}
	codes := newStubCodes()

	resolver, err := actors.NewResolver(userStub, adminStub)
	require.NoError(t, err)

	svc, err := NewService(cfg, userStub, adminStub, codes, resolver, nil)
	require.NoError(t, err)
	return &authFixture{svc: svc, cfg: cfg, users: userStub, admins: adminStub, codes: codes}
}

func (f *authFixture) seedUser(t *testing.T, phone, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, f.cfg.Password)
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), FirstName: "Ali", Phone: phone, PasswordHash: hash, TokenVersion: 1}
	f.users.add(user)
	return user
}

func TestRegisterParksPendingRegistration(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, RegisterRequest{
		FirstName: "Ali",
		LastName:  "Valiyev",
		Phone:     "+998901234567",
		Password:  "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "+998901234567", resp.Phone)
	assert.Equal(t, 60, resp.ExpiresIn)
	require.Len(t, f.codes.lastCode, 4)

	// nothing persisted until the code comes back
	_, err = f.users.FindByPhone(ctx, "+998901234567")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.seedUser(t, "+998901234567", "pw-12345678")

	_, err := f.svc.Register(ctx, RegisterRequest{
		FirstName: "Other",
		LastName:  "Person",
		Phone:     "+998901234567",
		Password:  "another-pass",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestVerifyCreatesUserAndMintsTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{
		FirstName: "Ali",
		LastName:  "Valiyev",
		Phone:     "+998901234567",
		Password:  "correct-horse",
	})
	require.NoError(t, err)

	resp, err := f.svc.Verify(ctx, VerifyRequest{Phone: "+998901234567", Code: f.codes.lastCode})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, "+998901234567", resp.User.Phone)

	claims, err := pkgauth.ParseAccessToken(f.cfg.JWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.ActorID)
	assert.Equal(t, 1, claims.TokenVersion)

	// the password made it into storage hashed, not plaintext
	stored, err := f.users.FindByPhone(ctx, "+998901234567")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// the code is single use
	_, err = f.svc.Verify(ctx, VerifyRequest{Phone: "+998901234567", Code: f.codes.lastCode})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestVerifyPhoneMismatch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{
		FirstName: "Ali",
		LastName:  "Valiyev",
		Phone:     "+998901234567",
		Password:  "correct-horse",
	})
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, VerifyRequest{Phone: "+998909999999", Code: f.codes.lastCode})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "+998901234567", "correct-horse")

	resp, err := f.svc.Login(ctx, LoginRequest{Phone: "+998901234567", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotNil(t, user.LastLoginAt)

	_, err = f.svc.Login(ctx, LoginRequest{Phone: "+998901234567", Password: "wrong"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = f.svc.Login(ctx, LoginRequest{Phone: "+998900000000", Password: "whatever"})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestDeveloperLoginResolvesAdmin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Login(ctx, LoginRequest{Phone: f.cfg.Developer.Phone, Password: f.cfg.Developer.Key})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)
	assert.Nil(t, resp.User)

	claims, err := pkgauth.ParseAccessToken(f.cfg.JWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.admins.admin.ID, claims.ActorID)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "+998901234567", "correct-horse")

	login, err := f.svc.Login(ctx, LoginRequest{Phone: "+998901234567", Password: "correct-horse"})
	require.NoError(t, err)

	pair, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	claims, err := pkgauth.ParseAccessToken(f.cfg.JWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ActorID)

	_, err = f.svc.Refresh(ctx, "not-a-token")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	// an access token must not pass as a refresh token
	_, err = f.svc.Refresh(ctx, login.AccessToken)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestChangePasswordMintsStoredVersion(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "+998905554433", "correct-horse")

	// another session already rotated twice; this handler still holds the
	// snapshot resolved at request time
	user.TokenVersion = 3
	snapshot := *user
	snapshot.TokenVersion = 1
	actor := &actors.Actor{User: &snapshot}

	pair, err := f.svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.Equal(t, 4, user.TokenVersion)

	claims, err := pkgauth.ParseAccessToken(f.cfg.JWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 4, claims.TokenVersion, "pair carries the stored version, not the snapshot's")
}

func TestChangePasswordRevokesOldTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "+998901234567", "correct-horse")

	login, err := f.svc.Login(ctx, LoginRequest{Phone: "+998901234567", Password: "correct-horse"})
	require.NoError(t, err)

	actor := &actors.Actor{User: user}

	_, err = f.svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "wrong", NewPassword: "brand-new-pass"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	pair, err := f.svc.ChangePassword(ctx, actor, ChangePasswordRequest{OldPassword: "correct-horse", NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.Equal(t, 2, user.TokenVersion)

	// the pre-rotation refresh token is dead
	_, err = f.svc.Refresh(ctx, login.RefreshToken)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	// the freshly minted pair carries the new version
	newPair, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := pkgauth.ParseAccessToken(f.cfg.JWT, newPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, 2, claims.TokenVersion)

	ok, err := security.VerifyPassword("brand-new-pass", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}
