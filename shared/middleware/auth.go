package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey   = "userId"
	emailKey    = "email"
	TokenCookie = "token"
)

var (
	jwtSecretMu  sync.RWMutex
	jwtSecretVal []byte
)

// InitJWTSecret installs the HMAC key used to sign and verify tokens.
func InitJWTSecret(secret string) error {
	if secret == "" {
		return errors.New("jwt secret must not be empty")
	}
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecretVal = []byte(secret)
	return nil
}

// MustInitJWTSecret is InitJWTSecret that panics on error.
func MustInitJWTSecret(secret string) {
	if err := InitJWTSecret(secret); err != nil {
		panic(err)
	}
}

func jwtSecret() ([]byte, error) {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	if len(jwtSecretVal) == 0 {
		return nil, errors.New("jwt secret is not initialised")
	}
	return jwtSecretVal, nil
}

type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token binding the caller to userID.
func IssueToken(userID int64, email string, ttl time.Duration) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID <= 0 {
		return nil, errors.New("invalid token: missing user id")
	}
	return claims, nil
}

// SetAuthToken hands a freshly issued token back to the client, both as a
// bearer header and as a cookie for clients that keep a session.
func SetAuthToken(c *gin.Context, token string, ttl time.Duration) {
	c.Header("Authorization", "Bearer "+token)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(TokenCookie, token, int(ttl.Seconds()), "/", "", false, true)
}

func tokenFromRequest(c *gin.Context) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.New("Invalid authorization header format")
		}
		return parts[1], nil
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", errors.New("Authorization header required")
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		SetUserID(c, claims.UserID)
		c.Set(emailKey, claims.Email)
		c.Next()
	}
}

// SetUserID binds the request to userID. Used by AuthMiddleware and tests.
func SetUserID(c *gin.Context, userID int64) {
	c.Set(userIDKey, userID)
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok && id > 0
}
