package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"mobility-finance/ledger-backend/internal/ledger"
)

const principalKey = "principal"

// Claims carries the ledger principal in the subject claim
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 principal tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for principal
func (m *TokenManager) Issue(principal ledger.Address, role string) (string, error) {
	if err := principal.Validate(); err != nil {
		return "", err
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a token and returns its principal
func (m *TokenManager) Parse(tokenStr string) (ledger.Address, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	principal := ledger.Address(claims.Subject)
	if err := principal.Validate(); err != nil {
		return "", err
	}
	return principal, nil
}

// Authenticate resolves the caller principal from the bearer token.
// Websocket upgrades may pass the token as ?access_token= instead.
func (m *TokenManager) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		principal, err := m.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}
	if websocket.IsWebSocketUpgrade(c.Request) {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// Principal returns the authenticated caller of the current request
func Principal(c *gin.Context) ledger.Address {
	if v, ok := c.Get(principalKey); ok {
		if principal, ok := v.(ledger.Address); ok {
			return principal
		}
	}
	return ""
}
