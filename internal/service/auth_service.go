package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pulsegram/internal/domain"
	"pulsegram/internal/security"
)

const maxOTPAttempts = 5

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	handlePattern = regexp.MustCompile(`^@[a-z0-9_.]{3,30}$`)
)

// AuthConfig carries the expiries and link origin the auth flows need.
type AuthConfig struct {
	FrontendOrigin  string
	VerifyExpiry    time.Duration
	OTPExpiry       time.Duration
	ResetLinkExpiry time.Duration
}

// AuthService handles registration, verification, login, session refresh,
// and the two-phase password reset (OTP, then link token).
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
	mail   Mailer
	cfg    AuthConfig
	log    zerolog.Logger
}

func NewAuthService(
	users domain.UserRepository,
	tokens *security.TokenService,
	hash *security.PasswordHasher,
	mail Mailer,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
		mail:   mail,
		cfg:    cfg,
		log:    log,
	}
}

type RegisterInput struct {
	FullName string
	Username string
	Email    string
	DOB      string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

// TokenPair is an access/refresh token set destined for HTTP-only cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// NormalizeHandle lowercases a username and ensures the leading '@' sigil.
func NormalizeHandle(username string) string {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "@") {
		u = "@" + u
	}
	return u
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	username := NormalizeHandle(in.Username)

	if in.FullName == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if !handlePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-30 characters (letters, digits, '_', '.')", domain.ErrInvalidInput)
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", domain.ErrConflict)
	}
	if existing, err := s.users.GetByUsername(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("%w: username already taken", domain.ErrConflict)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verifyToken, err := security.RandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate verify token: %w", err)
	}

	user := &domain.User{
		FullName:           in.FullName,
		Username:           username,
		Email:              in.Email,
		DOB:                in.DOB,
		PasswordHash:       hashed,
		IsVerified:         false,
		VerifyTokenHash:    security.HashToken(verifyToken),
		VerifyTokenExpires: time.Now().Add(s.cfg.VerifyExpiry),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	// account state is persisted first; delivery is queued and retried,
	// the response never waits on the mail relay
	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.FrontendOrigin, verifyToken)
	s.mail.Enqueue(user.Email, "Verify your email",
		fmt.Sprintf("Hi %s,\n\nConfirm your email address to activate your account:\n%s\n", user.FullName, link))

	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrInvalidInput)
	}
	user, err := s.users.GetByVerifyTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return fmt.Errorf("lookup verify token: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: invalid verification token", domain.ErrInvalidInput)
	}
	if time.Now().After(user.VerifyTokenExpires) {
		return fmt.Errorf("%w: verification token expired", domain.ErrInvalidInput)
	}
	return s.users.SetVerified(ctx, user.ID)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("%w: incorrect email or password", domain.ErrUnauthorized)
	}
	if err := s.hash.Verify(in.Password, user.PasswordHash); err != nil {
		return nil, nil, fmt.Errorf("%w: incorrect email or password", domain.ErrUnauthorized)
	}
	if !user.IsVerified {
		return nil, nil, fmt.Errorf("%w: please verify your email", domain.ErrForbidden)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates the refresh token, cross-checks the token version, and
// rotates the pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *TokenPair, error) {
	claims := s.tokens.VerifyRefresh(refreshToken)
	if claims == nil {
		return nil, nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, fmt.Errorf("%w: session invalidated", domain.ErrUnauthorized)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// LogoutAll bumps the token version, invalidating every outstanding session
// without a revocation list.
func (s *AuthService) LogoutAll(ctx context.Context, userID primitive.ObjectID) error {
	return s.users.BumpTokenVersion(ctx, userID)
}

// ForgotPassword issues a 6-digit OTP. The response is identical whether or
// not the email exists, to avoid account enumeration.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil
	}

	otp, err := security.GenerateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	user.ResetOTPHash = security.HashToken(otp)
	user.ResetOTPExpires = time.Now().Add(s.cfg.OTPExpiry)
	user.ResetOTPAttempts = 0
	user.ResetOTPVerified = false
	user.ResetTokenHash = ""
	user.ResetTokenExpires = time.Time{}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.mail.Enqueue(user.Email, "Your password reset code",
		fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.\n", otp, int(s.cfg.OTPExpiry.Minutes())))
	return nil
}

// VerifyOTP checks the code and, on success, returns a one-shot reset link
// token for the final phase.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.ResetOTPHash == "" {
		return "", fmt.Errorf("%w: invalid or expired code", domain.ErrInvalidInput)
	}
	if time.Now().After(user.ResetOTPExpires) {
		return "", fmt.Errorf("%w: invalid or expired code", domain.ErrInvalidInput)
	}
	if user.ResetOTPAttempts >= maxOTPAttempts {
		return "", fmt.Errorf("%w: too many attempts, request a new code", domain.ErrForbidden)
	}

	if security.HashToken(otp) != user.ResetOTPHash {
		user.ResetOTPAttempts++
		if err := s.users.Update(ctx, user); err != nil {
			s.log.Error().Err(err).Str("user", user.ID.Hex()).Msg("record otp attempt")
		}
		return "", fmt.Errorf("%w: invalid or expired code", domain.ErrInvalidInput)
	}

	resetToken, err := security.RandomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	user.ResetOTPVerified = true
	user.ResetTokenHash = security.HashToken(resetToken)
	user.ResetTokenExpires = time.Now().Add(s.cfg.ResetLinkExpiry)
	if err := s.users.Update(ctx, user); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return resetToken, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	user, err := s.users.GetByResetTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if user == nil || !user.ResetOTPVerified {
		return fmt.Errorf("%w: invalid reset token", domain.ErrInvalidInput)
	}
	if time.Now().After(user.ResetTokenExpires) {
		return fmt.Errorf("%w: reset token expired", domain.ErrInvalidInput)
	}

	hashed, err := s.hash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hashed
	user.ResetOTPHash = ""
	user.ResetOTPExpires = time.Time{}
	user.ResetOTPAttempts = 0
	user.ResetOTPVerified = false
	user.ResetTokenHash = ""
	user.ResetTokenExpires = time.Time{}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// invalidate every session issued under the old password
	return s.users.BumpTokenVersion(ctx, user.ID)
}

func (s *AuthService) issuePair(user *domain.User) (*TokenPair, error) {
	claims := security.SessionClaims{UserID: user.ID.Hex(), TokenVersion: user.TokenVersion}
	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
