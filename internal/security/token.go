package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session cookie names. Tokens travel in HTTP-only cookies, not headers.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// SessionClaims is the payload carried by both access and refresh tokens.
type SessionClaims struct {
	UserID       string
	TokenVersion int
}

// TokenService creates and verifies signed session tokens. Access and
// refresh tokens are signed with distinct secrets and distinct expiries.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken signs a short-lived access token.
func (t *TokenService) IssueAccessToken(c SessionClaims) (string, error) {
	return sign(c, t.accessSecret, t.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token.
func (t *TokenService) IssueRefreshToken(c SessionClaims) (string, error) {
	return sign(c, t.refreshSecret, t.refreshTTL)
}

func sign(c SessionClaims, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": c.UserID,
		"tv":  c.TokenVersion,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccess validates an access token; it returns nil on any failure
// (expired, malformed, wrong signature) and never panics.
func (t *TokenService) VerifyAccess(tokenStr string) *SessionClaims {
	return verify(tokenStr, t.accessSecret)
}

// VerifyRefresh validates a refresh token; nil on any failure.
func (t *TokenService) VerifyRefresh(tokenStr string) *SessionClaims {
	return verify(tokenStr, t.refreshSecret)
}

func verify(tokenStr string, secret []byte) *SessionClaims {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	tv, ok := claims["tv"].(float64)
	if !ok {
		return nil
	}
	return &SessionClaims{UserID: sub, TokenVersion: int(tv)}
}

// RandomToken returns byteLength bytes of secure randomness hex-encoded,
// for out-of-band verification and reset links.
func RandomToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = 32
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of a token so raw tokens are
// never persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateOTP returns a 6-digit code drawn uniformly from
// [100000, 999999].
func GenerateOTP() (string, error) {
	const span = 900000
	// rejection sampling keeps the distribution uniform
	max := uint32((1 << 32) / span * span)
	for {
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		v := binary.BigEndian.Uint32(buf[:])
		if v >= max {
			continue
		}
		return fmt.Sprintf("%06d", 100000+v%span), nil
	}
}
