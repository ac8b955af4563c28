package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"chirp/internal/config"
	"chirp/internal/model"
)

type mockTokenRepo struct {
	createFn           func(ctx context.Context, token *model.RefreshToken) error
	getByTokenHashFn   func(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	revokeFn           func(ctx context.Context, id string, replacedBy *string) error
	revokeAllForUserFn func(ctx context.Context, userID int64) error
}

func (m *mockTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	if m.getByTokenHashFn != nil {
		return m.getByTokenHashFn(ctx, tokenHash)
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (m *mockTokenRepo) Revoke(ctx context.Context, id string, replacedBy *string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id, replacedBy)
	}
	return nil
}

func (m *mockTokenRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	if m.revokeAllForUserFn != nil {
		return m.revokeAllForUserFn(ctx, userID)
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func newAuthFixture(userRepo *mockUserRepo, tokenRepo *mockTokenRepo) *AuthService {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if tokenRepo == nil {
		tokenRepo = &mockTokenRepo{}
	}
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}
	return NewAuthService(userRepo, tokenRepo, cfg)
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	svc := newAuthFixture(nil, nil)

	for _, username := range []string{"", "has space", "way_too_long_username", "dot.ted"} {
		_, err := svc.Register(context.Background(), model.RegisterRequest{Username: username, Password: "password123"}, "", "")
		if !errors.Is(err, model.ErrInvalidUsername) {
			t.Errorf("Register(%q): got %v, want ErrInvalidUsername", username, err)
		}
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	hashStr := string(hash)
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: "alice", PasswordHashed: &hashStr}, nil
		},
	}
	svc := newAuthFixture(userRepo, nil)

	_, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "wrong"}, "", "")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Login: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginOAuthOnlyAccount(t *testing.T) {
	userRepo := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{ID: 1, Username: "alice"}, nil
		},
	}
	svc := newAuthFixture(userRepo, nil)

	_, err := svc.Login(context.Background(), model.LoginRequest{Username: "alice", Password: "anything"}, "", "")
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Errorf("Login against OAuth-only account: got %v, want ErrInvalidCredentials", err)
	}
}

// Presenting a rotated-out token must revoke every session of the user.
func TestRefreshReuseDetection(t *testing.T) {
	revoked := time.Now().Add(-time.Hour)
	var revokedAllFor int64
	tokenRepo := &mockTokenRepo{
		getByTokenHashFn: func(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				ID:        "old-token",
				UserID:    7,
				RevokedAt: &revoked,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		revokeAllForUserFn: func(ctx context.Context, userID int64) error {
			revokedAllFor = userID
			return nil
		},
	}
	svc := newAuthFixture(nil, tokenRepo)

	_, err := svc.Refresh(context.Background(), "stolen-token", "", "")
	if !errors.Is(err, model.ErrRefreshTokenReused) {
		t.Fatalf("Refresh: got %v, want ErrRefreshTokenReused", err)
	}
	if revokedAllFor != 7 {
		t.Errorf("revoked sessions for user %d, want 7", revokedAllFor)
	}
}

// A successful refresh revokes the presented token and links it to its
// replacement.
func TestRefreshRotation(t *testing.T) {
	var createdID string
	var revokedID string
	var replacedBy *string
	tokenRepo := &mockTokenRepo{
		getByTokenHashFn: func(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				ID:        "current",
				UserID:    7,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		createFn: func(ctx context.Context, token *model.RefreshToken) error {
			createdID = token.ID
			return nil
		},
		revokeFn: func(ctx context.Context, id string, rb *string) error {
			revokedID = id
			replacedBy = rb
			return nil
		},
	}
	svc := newAuthFixture(nil, tokenRepo)

	pair, err := svc.Refresh(context.Background(), "current-raw", "", "")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("refresh returned empty tokens")
	}
	if revokedID != "current" {
		t.Errorf("revoked token %q, want %q", revokedID, "current")
	}
	if replacedBy == nil || *replacedBy != createdID {
		t.Errorf("replaced_by = %v, want pointer to new token id %q", replacedBy, createdID)
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	tokenRepo := &mockTokenRepo{
		getByTokenHashFn: func(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
			return &model.RefreshToken{
				ID:        "stale",
				UserID:    7,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newAuthFixture(nil, tokenRepo)

	_, err := svc.Refresh(context.Background(), "stale-raw", "", "")
	if !errors.Is(err, model.ErrRefreshTokenExpired) {
		t.Errorf("Refresh: got %v, want ErrRefreshTokenExpired", err)
	}
}
