/**
 * @description
 * This file contains the inbound authentication middleware for the relay.
 * Every trading route is gated on a shared secret known only to the relay's callers.
 *
 * Key features:
 * - Shared Secret Header: A request carrying `X-Relay-Secret` equal to the configured
 *   secret is accepted.
 * - Bearer Tokens: A request carrying `Authorization: Bearer <jwt>` is accepted when the
 *   token is HS256-signed with the same secret and its time claims are valid. The
 *   token's subject, if any, is injected into the Gin context.
 * - Open Mode: With no secret configured the middleware lets everything through.
 *
 * @dependencies
 * - github.com/gin-gonic/gin: The web framework.
 * - github.com/golang-jwt/jwt/v5: For parsing and validating JWTs.
 */

package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// GinContextKey is a custom type to avoid key collisions in the Gin context.
type GinContextKey string

const (
	// RelaySecretHeader carries the shared secret.
	RelaySecretHeader = "X-Relay-Secret"
	// CallerIDKey holds the bearer token's subject, when one was presented.
	CallerIDKey GinContextKey = "callerID"
)

var errBadToken = errors.New("invalid bearer token")

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

/**
 * @description
 * NewRelayAuthMiddleware creates a Gin middleware that admits only callers holding
 * the relay secret.
 *
 * @param secret The shared secret. Empty disables the check.
 * @returns A gin.HandlerFunc that can be used as middleware.
 */
func NewRelayAuthMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)

	return func(c *gin.Context) {
		if provided := c.GetHeader(RelaySecretHeader); provided != "" {
			if subtle.ConstantTimeCompare([]byte(provided), key) != 1 {
				unauthorized(c)
				return
			}
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			unauthorized(c)
			return
		}

		subject, err := ParseToken(tokenString, key)
		if err != nil {
			unauthorized(c)
			return
		}
		if subject != "" {
			c.Set(string(CallerIDKey), subject)
		}
		c.Next()
	}
}

// ParseToken validates an HS256 token signed with key and returns its subject.
func ParseToken(tokenString string, key []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errBadToken
	}
	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", errBadToken
	}
	return subject, nil
}

// IssueToken signs an HS256 token for subject. Callers use it to mint tokens from
// the shared secret instead of sending the secret itself.
func IssueToken(subject string, key []byte, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = subject
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
