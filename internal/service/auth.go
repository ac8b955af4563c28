package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"chirp/internal/config"
	"chirp/internal/model"
	"chirp/internal/repository"
)

const githubUserEndpoint = "https://api.github.com/user"

// AuthService handles registration, login, token issuance and rotation, and
// the GitHub OAuth flow.
type AuthService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository

	jwtSecret       []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration

	oauth *oauth2.Config
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		tokenRepo:       tokenRepo,
		jwtSecret:       []byte(cfg.JWTSecret),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		oauth: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"read:user"},
			Endpoint:     oauthgithub.Endpoint,
		},
	}
}

// Register creates a password-based account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest, deviceInfo, ip string) (*model.LoginResponse, error) {
	if !model.ValidUsername.MatchString(req.Username) {
		return nil, model.ErrInvalidUsername
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Username: req.Username}
	hashedStr := string(hashed)
	user.PasswordHashed = &hashedStr
	if req.DisplayName != "" {
		user.DisplayName = &req.DisplayName
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueLoginResponse(ctx, user, deviceInfo, ip, true)
}

// Login verifies credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest, deviceInfo, ip string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHashed == nil {
		// OAuth-only account.
		return nil, model.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return s.issueLoginResponse(ctx, user, deviceInfo, ip, false)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair issued. Presenting an already-revoked token revokes the whole family.
func (s *AuthService) Refresh(ctx context.Context, rawToken, deviceInfo, ip string) (*model.TokenPair, error) {
	token, err := s.tokenRepo.GetByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}

	if token.IsRevoked() {
		// Reuse of a rotated token means the token was stolen or replayed.
		// Kill every session of this user.
		log.Printf("[Auth] Refresh token reuse detected for user %d, revoking all sessions", token.UserID)
		if err := s.tokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
			log.Printf("[Auth] FAILED to revoke sessions for user %d: %v", token.UserID, err)
		}
		return nil, model.ErrRefreshTokenReused
	}
	if token.IsExpired() {
		return nil, model.ErrRefreshTokenExpired
	}

	pair, newID, err := s.issueTokenPair(ctx, token.UserID, deviceInfo, ip)
	if err != nil {
		return nil, err
	}
	if err := s.tokenRepo.Revoke(ctx, token.ID, &newID); err != nil {
		return nil, fmt.Errorf("revoke rotated token: %w", err)
	}
	return pair, nil
}

// Logout revokes a single refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	token, err := s.tokenRepo.GetByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, model.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}
	if token.IsRevoked() {
		return nil
	}
	return s.tokenRepo.Revoke(ctx, token.ID, nil)
}

// LogoutAll revokes every refresh token of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID)
}

// GitHubAuthURL returns the GitHub authorization URL for the given CSRF state.
func (s *AuthService) GitHubAuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// githubUser is the subset of the GitHub /user response we consume.
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// HandleGitHubCallback exchanges the authorization code, fetches the GitHub
// profile and signs the user in, creating an account on first visit.
func (s *AuthService) HandleGitHubCallback(ctx context.Context, code, deviceInfo, ip string) (*model.LoginResponse, error) {
	oauthToken, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		log.Printf("[Auth] GitHub code exchange FAILED: %v", err)
		return nil, model.ErrOAuthExchange
	}

	ghUser, err := s.fetchGitHubUser(ctx, oauthToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByGitHubID(ctx, ghUser.ID)
	if err == nil {
		return s.issueLoginResponse(ctx, user, deviceInfo, ip, false)
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	user, err = s.createGitHubUser(ctx, ghUser)
	if err != nil {
		return nil, err
	}
	return s.issueLoginResponse(ctx, user, deviceInfo, ip, true)
}

func (s *AuthService) fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*githubUser, error) {
	client := s.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubUserEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user endpoint returned %d", resp.StatusCode)
	}

	var ghUser githubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("decode github user: %w", err)
	}
	return &ghUser, nil
}

func (s *AuthService) createGitHubUser(ctx context.Context, ghUser *githubUser) (*model.User, error) {
	username, err := s.deriveUsername(ctx, ghUser.Login)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:       username,
		GitHubID:       &ghUser.ID,
		GitHubUsername: &ghUser.Login,
	}
	if ghUser.Name != "" {
		user.DisplayName = &ghUser.Name
	}
	if ghUser.AvatarURL != "" {
		user.AvatarURL = &ghUser.AvatarURL
	}
	if ghUser.Bio != "" {
		bio := ghUser.Bio
		if len(bio) > model.MaxBioLength {
			bio = bio[:model.MaxBioLength]
		}
		user.Bio = &bio
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("[Auth] Created user %q from GitHub account %d", username, ghUser.ID)
	return user, nil
}

var nonUsernameChars = regexp.MustCompile(`\W`)

// deriveUsername turns a GitHub login into a free local handle: strip
// invalid characters, truncate, then append a counter until unused.
func (s *AuthService) deriveUsername(ctx context.Context, login string) (string, error) {
	base := nonUsernameChars.ReplaceAllString(login, "_")
	if len(base) > model.MaxUsernameLength {
		base = base[:model.MaxUsernameLength]
	}
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 1; i < 100; i++ {
		exists, err := s.userRepo.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		suffix := strconv.Itoa(i)
		trimmed := base
		if len(trimmed)+len(suffix) > model.MaxUsernameLength {
			trimmed = trimmed[:model.MaxUsernameLength-len(suffix)]
		}
		candidate = trimmed + suffix
	}
	return "", fmt.Errorf("could not derive a free username from %q", login)
}

func (s *AuthService) issueLoginResponse(ctx context.Context, user *model.User, deviceInfo, ip string, isNew bool) (*model.LoginResponse, error) {
	pair, _, err := s.issueTokenPair(ctx, user.ID, deviceInfo, ip)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		IsNewUser:    isNew,
	}, nil
}

// issueTokenPair mints an access token and stores a new refresh token,
// returning the pair and the refresh token's record ID for rotation links.
func (s *AuthService) issueTokenPair(ctx context.Context, userID int64, deviceInfo, ip string) (*model.TokenPair, string, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}

	rawRefresh := uuid.New().String()
	record := &model.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hashToken(rawRefresh),
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
	}
	if deviceInfo != "" {
		record.DeviceInfo = &deviceInfo
	}
	if ip != "" {
		record.IPAddress = &ip
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, "", fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		ExpiresIn:    int(s.accessTokenTTL.Seconds()),
	}, record.ID, nil
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.accessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// hashToken hashes a raw refresh token for storage. Only the hash ever
// touches the database.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
