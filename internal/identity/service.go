package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Options tunes credential lifetimes and sign-up policy.
type Options struct {
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RequireConfirmation bool
}

// Service provides authentication business logic.
type Service struct {
	repo Repository
	opts Options
}

// NewService creates a new identity Service.
func NewService(repo Repository, opts Options) *Service {
	if opts.AccessTokenTTL == 0 {
		opts.AccessTokenTTL = time.Hour
	}
	if opts.RefreshTokenTTL == 0 {
		opts.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	return &Service{repo: repo, opts: opts}
}

// SignUp registers a new password-based account. Unless confirmation is
// required by policy, the account is confirmed immediately.
func (s *Service) SignUp(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if err := validateSignUp(email, password); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	newUser := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}
	if !s.opts.RequireConfirmation {
		confirmed := now
		newUser.ConfirmedAt = &confirmed
	}

	created, err := s.repo.CreateUser(ctx, newUser)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &created, nil
}

// SignIn verifies the email/password pair and issues a refresh session plus
// an access token. Unconfirmed accounts are rejected with ErrEmailNotConfirmed.
func (s *Service) SignIn(ctx context.Context, email, password, userAgent, ipAddress string) (*User, *TokenPair, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.Confirmed() {
		return nil, nil, ErrEmailNotConfirmed
	}

	if err := s.repo.UpdateUserLogin(ctx, user.ID); err != nil {
		return nil, nil, fmt.Errorf("update user login: %w", err)
	}
	user.LastLoginAt = time.Now()

	pair, err := s.issueCredentials(ctx, user.ID, userAgent, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// SignInWithGoogle upserts the user for the given verified claims and issues credentials.
func (s *Service) SignInWithGoogle(ctx context.Context, claims *GoogleClaims, userAgent, ipAddress string) (*User, *TokenPair, error) {
	user, err := s.createOrUpdateOAuthUser(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issueCredentials(ctx, user.ID, userAgent, ipAddress)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is left in place until sign-out or expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, *TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, ErrInvalidCredentials
	}

	session, user, err := s.repo.FindRefreshSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, nil, fmt.Errorf("find refresh session: %w", err)
	}
	if session == nil || user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.repo.DeleteRefreshSession(ctx, session.ID)
		return nil, nil, ErrInvalidCredentials
	}

	accessToken, accessExpiry, err := s.mintAccessToken(ctx, session.ID, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// SignOut revokes the refresh session for the given token. Revoking an
// unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	session, _, err := s.repo.FindRefreshSessionByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("find refresh session: %w", err)
	}
	if session == nil {
		return nil
	}

	return s.repo.DeleteRefreshSession(ctx, session.ID)
}

// ValidateAccessToken checks the bearer token and returns the associated user.
// An unknown or expired token yields (nil, nil).
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	accessToken, user, err := s.repo.FindAccessTokenByHash(ctx, hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("find access token: %w", err)
	}
	if accessToken == nil || user == nil {
		return nil, nil
	}

	if time.Now().After(accessToken.ExpiresAt) {
		_ = s.repo.DeleteAccessToken(ctx, accessToken.ID)
		return nil, nil
	}

	return user, nil
}

// UpdateEmail changes the account's email address.
func (s *Service) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return &ValidationError{Message: "invalid email address"}
	}

	existing, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if existing != nil && existing.ID != userID {
		return ErrEmailTaken
	}

	return s.repo.UpdateUserEmail(ctx, userID, email)
}

// CleanupExpiredCredentials removes expired refresh sessions and access tokens.
func (s *Service) CleanupExpiredCredentials(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredCredentials(ctx)
}

// createOrUpdateOAuthUser finds an existing user by OAuth credentials or creates a new one.
func (s *Service) createOrUpdateOAuthUser(ctx context.Context, claims *GoogleClaims) (*User, error) {
	existing, err := s.repo.FindUserByOAuth(ctx, "google", claims.Sub)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if existing != nil {
		if err := s.repo.UpdateUserLogin(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("update user login: %w", err)
		}
		existing.LastLoginAt = time.Now()
		return existing, nil
	}

	// The identity provider verified the email; OAuth accounts are confirmed on creation.
	now := time.Now()
	newUser := User{
		ID:              uuid.New(),
		Email:           normalizeEmail(claims.Email),
		OAuthProvider:   "google",
		OAuthProviderID: claims.Sub,
		ConfirmedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastLoginAt:     now,
	}

	created, err := s.repo.CreateUser(ctx, newUser)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &created, nil
}

func (s *Service) issueCredentials(ctx context.Context, userID uuid.UUID, userAgent, ipAddress string) (*TokenPair, error) {
	refreshToken, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now()
	session := RefreshSession{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: now.Add(s.opts.RefreshTokenTTL),
		CreatedAt: now,
		UserAgent: truncateString(userAgent, 512),
		IPAddress: truncateString(ipAddress, 45),
	}

	if err := s.repo.CreateRefreshSession(ctx, session, hashToken(refreshToken)); err != nil {
		return nil, fmt.Errorf("create refresh session: %w", err)
	}

	accessToken, accessExpiry, err := s.mintAccessToken(ctx, session.ID, userID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiry,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) mintAccessToken(ctx context.Context, sessionID, userID uuid.UUID) (string, time.Time, error) {
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate access token: %w", err)
	}

	now := time.Now()
	record := AccessToken{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(s.opts.AccessTokenTTL),
		CreatedAt: now,
	}

	if err := s.repo.CreateAccessToken(ctx, record, hashToken(token)); err != nil {
		return "", time.Time{}, fmt.Errorf("create access token: %w", err)
	}

	return token, record.ExpiresAt, nil
}

func validateSignUp(email, password string) error {
	if !strings.Contains(email, "@") {
		return &ValidationError{Message: "invalid email address"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateToken returns a cryptographically secure opaque token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// hashToken returns the SHA-256 hash of the token as a hex string.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// truncateString truncates a string to the given max length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
