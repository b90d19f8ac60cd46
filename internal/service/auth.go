package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/metrics"
	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// AuthService registers users, issues and resolves bearer tokens and
// manages profiles.
type AuthService struct {
	store    Store
	cache    AuthCache
	hasher   *auth.Hasher
	tokenTTL time.Duration
	usage    UsageRecorder
	metrics  metrics.Recorder
	logger   *slog.Logger
	clock    func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// AuthConfig configures an AuthService.
type AuthConfig struct {
	Store  Store
	Cache  AuthCache // optional
	Hasher *auth.Hasher
	// TokenTTL of zero issues tokens that never expire.
	TokenTTL time.Duration
	// Usage receives token use events. When nil, last_used_at is written
	// directly in a background goroutine.
	Usage   UsageRecorder
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(cfg AuthConfig) *AuthService {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Hasher == nil {
		cfg.Hasher = auth.NewHasher(auth.DefaultParams)
	}
	return &AuthService{
		store:    cfg.Store,
		cache:    cfg.Cache,
		hasher:   cfg.Hasher,
		tokenTTL: cfg.TokenTTL,
		usage:    cfg.Usage,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		clock:    now,
	}
}

// Session is a user together with a freshly issued plaintext token.
type Session struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ts := s.clock()
	user := &model.User{
		ID:           newID(),
		Name:         strings.TrimSpace(in.Name),
		Handle:       in.Handle,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if verr := conflictToValidation(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(ctx, user.ID, "register")
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and issues a new token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn the same work as a real verify so unknown emails
			// are not distinguishable by latency.
			_, _ = s.hasher.Verify(in.Password, s.dummyHash())
			s.metrics.IncAuthFailure("credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.metrics.IncAuthFailure("credentials")
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(ctx, user.ID, "login")
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}

// IssueToken mints and stores a new access token for userID and returns
// its plaintext.
func (s *AuthService) IssueToken(ctx context.Context, userID, name string) (string, error) {
	generated, err := auth.GenerateToken(s.hasher)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	ts := s.clock()
	token := &model.AccessToken{
		ID:          newID(),
		UserID:      userID,
		TokenHash:   generated.Hash,
		TokenPrefix: generated.Prefix,
		Name:        name,
		CreatedAt:   ts,
	}
	if s.tokenTTL > 0 {
		exp := ts.Add(s.tokenTTL)
		token.ExpiresAt = &exp
	}

	if err := s.store.CreateAccessToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("store token: %w", err)
	}

	return generated.Plaintext, nil
}

// Authenticate resolves a plaintext bearer token to its user. Any failure
// to match returns ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, plaintext string) (*auth.Principal, error) {
	prefix, err := auth.ParseTokenPrefix(plaintext)
	if err != nil {
		s.metrics.IncAuthFailure("token")
		return nil, ErrInvalidToken
	}

	cacheKey := auth.QuickHash(plaintext)
	authCtx := s.cachedAuth(ctx, cacheKey)

	if authCtx == nil {
		authCtx, err = s.lookupToken(ctx, plaintext, prefix)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cacheAuth(ctx, cacheKey, authCtx); err != nil {
				return nil, err
			}
		}
	}

	user, err := s.store.GetUserByID(ctx, authCtx.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAuthFailure("token")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	s.recordUse(ctx, authCtx.TokenID)
	return &auth.Principal{User: user, Token: authCtx}, nil
}

func (s *AuthService) recordUse(ctx context.Context, tokenID string) {
	at := s.clock()
	if s.usage != nil {
		s.usage.RecordTokenUse(tokenID, at)
		return
	}

	go func() {
		bg := context.WithoutCancel(ctx)
		if err := s.store.UpdateAccessTokenLastUsed(bg, tokenID, at); err != nil {
			s.logger.Warn("update token last_used_at failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// cacheAuth stores a fresh resolution unless a logout of the same user
// overlapped the lookup. The generation is read first, then the token row
// is confirmed, so a logout either removes the row before the check or
// bumps the generation before the write. Either way the request fails.
func (s *AuthService) cacheAuth(ctx context.Context, cacheKey string, authCtx *model.AuthContext) error {
	gen, err := s.cache.AuthGeneration(ctx, authCtx.UserID)
	if err != nil {
		s.logger.Warn("auth cache generation read failed", slog.String("error", err.Error()))
		return nil
	}

	if _, err := s.store.GetAccessTokenByID(ctx, authCtx.TokenID); err != nil {
		if errors.Is(err, repository.ErrAccessTokenNotFound) {
			s.metrics.IncAuthFailure("revoked")
			return ErrInvalidToken
		}
		return fmt.Errorf("confirm token: %w", err)
	}

	stored, err := s.cache.SetAuthContext(ctx, cacheKey, authCtx, gen)
	if err != nil {
		s.logger.Warn("auth cache write failed", slog.String("error", err.Error()))
		return nil
	}
	if !stored {
		s.metrics.IncAuthFailure("revoked")
		return ErrInvalidToken
	}
	return nil
}

func (s *AuthService) cachedAuth(ctx context.Context, cacheKey string) *model.AuthContext {
	if s.cache == nil {
		return nil
	}
	authCtx, err := s.cache.GetAuthContext(ctx, cacheKey)
	if err != nil {
		s.logger.Warn("auth cache read failed", slog.String("error", err.Error()))
		return nil
	}
	return authCtx
}

func (s *AuthService) lookupToken(ctx context.Context, plaintext, prefix string) (*model.AuthContext, error) {
	candidates, err := s.store.GetAccessTokensByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	// Prefixes may collide, verify every candidate.
	var matched *model.AccessToken
	for _, c := range candidates {
		ok, err := s.hasher.Verify(plaintext, c.TokenHash)
		if err != nil {
			continue
		}
		if ok {
			matched = c
			break
		}
	}
	if matched == nil {
		s.metrics.IncAuthFailure("token")
		return nil, ErrInvalidToken
	}
	if matched.IsExpired(s.clock()) {
		s.metrics.IncAuthFailure("expired")
		return nil, ErrInvalidToken
	}

	return &model.AuthContext{
		UserID:      matched.UserID,
		TokenID:     matched.ID,
		TokenPrefix: matched.TokenPrefix,
	}, nil
}

// Logout revokes every token of the user, in the database and the cache.
func (s *AuthService) Logout(ctx context.Context, user *model.User) error {
	if user == nil {
		return ErrUnauthenticated
	}

	if _, err := s.store.DeleteAccessTokensByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateUserAuthContexts(ctx, user.ID); err != nil {
			return fmt.Errorf("invalidate cached tokens: %w", err)
		}
	}
	return nil
}

// UpdateProfile changes name, handle and email of user. Uniqueness is
// checked against every other account.
func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, in ProfileInput) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	in.Email = strings.TrimSpace(in.Email)
	in.Handle = strings.TrimSpace(in.Handle)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	updated := *user
	updated.Name = strings.TrimSpace(in.Name)
	updated.Handle = in.Handle
	updated.Email = in.Email
	updated.UpdatedAt = s.clock()

	if err := s.store.UpdateUserProfile(ctx, &updated); err != nil {
		if verr := conflictToValidation(err); verr != nil {
			return nil, verr
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return &updated, nil
}

// ListOtherUsers returns every account except user, ordered by name.
func (s *AuthService) ListOtherUsers(ctx context.Context, user *model.User) ([]*model.PublicUser, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	users, err := s.store.ListUsersExcept(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func conflictToValidation(err error) error {
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return invalid("email", "The email has already been taken.")
	case errors.Is(err, repository.ErrHandleExists):
		return invalid("user_name", "The user name has already been taken.")
	}
	return nil
}

// dummyHash returns a hash in the service's parameters, used to spend
// constant work on unknown emails.
func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("not-a-real-password")
	})
	return s.dummy
}
