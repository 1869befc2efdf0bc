package auth

import (
	"errors" // Error inspection
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Claims carried by the session cookie
type Claims struct {
	UserID               uint   `json:"user_id"`  // Custom claim for user ID
	Username             string `json:"username"` // Custom claim for the display name
	jwt.RegisteredClaims        // Standard JWT claims, ID holds the session id
}

// GenerateToken signs a session cookie value for sess
func GenerateToken(sess *Session, secret []byte) (string, error) {
	// Set token claims
	claims := Claims{
		UserID:   sess.UserID,   // Custom claim for user ID
		Username: sess.Username, // Custom claim for the display name
		// Standard claims
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,                            // Session id registered in Redis
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt), // Token expires with the session
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),  // Issued at session creation
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString(secret)                          // Sign the token with the secret
}

// ParseToken parses and validates a session cookie value against now
func ParseToken(tokenStr string, secret []byte, now func() time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return secret, nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now), jwt.WithExpirationRequired())
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.ID != "" {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrTokenInvalidClaims
}

// sessionIDFromToken returns the session id of a correctly signed token, expired or not
func sessionIDFromToken(tokenStr string, secret []byte) (string, bool) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return secret, nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Signatures are checked before expiry, so an expired token is still authentic
	if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
		return "", false
	}
	return claims.ID, claims.ID != ""
}
