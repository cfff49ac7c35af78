package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bozorchi/shop-backend/internal/actors"
	"github.com/bozorchi/shop-backend/internal/users"
	"github.com/bozorchi/shop-backend/pkg/auth"
	"github.com/bozorchi/shop-backend/pkg/config"
	"github.com/bozorchi/shop-backend/pkg/db/models"
	"github.com/bozorchi/shop-backend/pkg/enums"
	pkgerrors "github.com/bozorchi/shop-backend/pkg/errors"
	"github.com/bozorchi/shop-backend/pkg/logger"
	"github.com/bozorchi/shop-backend/pkg/redis"
	"github.com/bozorchi/shop-backend/pkg/security"
)

// Service owns the credential flows: registration, verification, login,
// token refresh and password rotation.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, actor *actors.Actor, req ChangePasswordRequest) (*TokenPair, error)
}

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type adminStore interface {
	First(ctx context.Context) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// codeStore parks pending registrations between register and verify.
// *redis.Client satisfies it.
type codeStore interface {
	StorePendingRegistration(ctx context.Context, code, payload string, ttl time.Duration) error
	GetPendingRegistration(ctx context.Context, code string) (string, error)
	DeletePendingRegistration(ctx context.Context, code string) error
}

type service struct {
	cfg      *config.Config
	users    userStore
	admins   adminStore
	codes    codeStore
	resolver *actors.Resolver
	logg     *logger.Logger
}

// NewService wires the credential flows.
func NewService(cfg *config.Config, userRepo userStore, adminRepo adminStore, codes codeStore, resolver *actors.Resolver, logg *logger.Logger) (Service, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if userRepo == nil {
		return nil, errors.New("user store required")
	}
	if adminRepo == nil {
		return nil, errors.New("admin store required")
	}
	if codes == nil {
		return nil, errors.New("verification code store required")
	}
	if resolver == nil {
		return nil, errors.New("actor resolver required")
	}
	return &service{cfg: cfg, users: userRepo, admins: adminRepo, codes: codes, resolver: resolver, logg: logg}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	phone := strings.TrimSpace(req.Phone)

	_, err := s.users.FindByPhone(ctx, phone)
	if err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up phone")
	}

	hash, err := security.HashPassword(req.Password, s.cfg.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	pending := pendingRegistration{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        phone,
		PasswordHash: hash,
		Gender:       req.Gender,
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending registration")
	}

	code, err := security.GenerateNumericCode(s.cfg.Verification.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	if err := s.codes.StorePendingRegistration(ctx, code, string(payload), s.cfg.Verification.CodeTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pending registration")
	}

	if s.logg != nil {
		// SMS delivery happens out of band; surface the code for dev setups only.
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"phone": phone, "code": code}), "verification code issued")
	}

	return &RegisterResponse{
		Phone:     phone,
		ExpiresIn: int(s.cfg.Verification.CodeTTL.Seconds()),
	}, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*AuthResponse, error) {
	payload, err := s.codes.GetPendingRegistration(ctx, req.Code)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired verification code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending registration")
	}

	var pending pendingRegistration
	if err := json.Unmarshal([]byte(payload), &pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending registration")
	}
	if pending.Phone != strings.TrimSpace(req.Phone) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired verification code")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		FirstName:    pending.FirstName,
		LastName:     pending.LastName,
		Phone:        pending.Phone,
		PasswordHash: pending.PasswordHash,
		Gender:       enums.Gender(pending.Gender),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	// The code is single use regardless of what happens next.
	if err := s.codes.DeletePendingRegistration(ctx, req.Code); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "drop consumed verification code")
	}

	pair, err := s.mintPair(user.ID, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{TokenPair: *pair, User: users.FromModel(user)}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	phone := strings.TrimSpace(req.Phone)

	if s.cfg.Developer.Enabled() && phone == s.cfg.Developer.Phone && req.Password == s.cfg.Developer.Key {
		return s.loginAdmin(ctx)
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phone or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up user")
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phone or password")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "update last login")
	}

	pair, err := s.mintPair(user.ID, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{TokenPair: *pair, User: users.FromModel(user)}, nil
}

// loginAdmin resolves the platform admin record for the developer login.
func (s *service) loginAdmin(ctx context.Context) (*AuthResponse, error) {
	admin, err := s.admins.First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid phone or password")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load admin")
	}

	if err := s.admins.UpdateLastLogin(ctx, admin.ID, time.Now().UTC()); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "update admin last login")
	}

	pair, err := s.mintPair(admin.ID, admin.TokenVersion)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{TokenPair: *pair, IsAdmin: true}, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := auth.ParseRefreshToken(s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid token")
	}

	// Re-resolving catches revoked versions and deleted accounts.
	actor, err := s.resolver.Resolve(ctx, claims)
	if err != nil {
		return nil, err
	}

	return s.mintPair(actor.ID(), actor.TokenVersion())
}

func (s *service) ChangePassword(ctx context.Context, actor *actors.Actor, req ChangePasswordRequest) (*TokenPair, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var currentHash string
	switch {
	case actor.User != nil:
		currentHash = actor.User.PasswordHash
	case actor.Admin != nil:
		currentHash = actor.Admin.PasswordHash
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	ok, err := security.VerifyPassword(req.OldPassword, currentHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "old password does not match")
	}

	newHash, err := security.HashPassword(req.NewPassword, s.cfg.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	// UpdatePassword bumps the token version, revoking every token minted
	// before this call. The pair below is the only one still valid.
	if actor.User != nil {
		err = s.users.UpdatePassword(ctx, actor.ID(), newHash)
	} else {
		err = s.admins.UpdatePassword(ctx, actor.ID(), newHash)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate password")
	}

	// re-read the row so the minted pair carries the stored version even
	// when concurrent revocations bumped it further
	var newVersion int
	if actor.User != nil {
		user, err := s.users.FindByID(ctx, actor.ID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
		}
		newVersion = user.TokenVersion
	} else {
		admin, err := s.admins.FindByID(ctx, actor.ID())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload admin")
		}
		newVersion = admin.TokenVersion
	}

	return s.mintPair(actor.ID(), newVersion)
}

func (s *service) mintPair(actorID uuid.UUID, tokenVersion int) (*TokenPair, error) {
	now := time.Now().UTC()
	payload := auth.TokenPayload{ActorID: actorID, TokenVersion: tokenVersion}

	access, err := auth.MintAccessToken(s.cfg.JWT, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	refresh, err := auth.MintRefreshToken(s.cfg.JWT, now, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
