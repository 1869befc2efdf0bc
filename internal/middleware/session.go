package middleware

import (
	"context"                  // Context for session lookups
	"errors"                   // Error inspection
	"net/http"                 // HTTP status codes
	"net/url"                  // Query escaping for the next parameter
	"smart_bin/internal/auth"  // Session gate
	"smart_bin/internal/flash" // Status messages across redirects
	"strings"                  // Path checks

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// SessionCookie holds the signed session token
const SessionCookie = "smart_bin_session"

const sessionKey = "session" // Gin context key of the current *auth.Session

// SessionValidator resolves a session token to a live session
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*auth.Session, error)
}

// RequireSession lets the request through only with a valid session.
// Anonymous requests are redirected to the login page with the original target in next.
func RequireSession(v SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := resolveSession(c, v)
		if !ok {
			flash.Add(c, flash.Warning, "Veuillez vous connecter pour accéder à cette page.")
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Set(sessionKey, sess) // Store session in context
		c.Next()                // Proceed to the next handler
	}
}

// OptionalSession records the session when one is present and never blocks
func OptionalSession(v SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, ok := resolveSession(c, v); ok {
			c.Set(sessionKey, sess)
		}
		c.Next()
	}
}

// CurrentSession returns the session stored by RequireSession or OptionalSession
func CurrentSession(c *gin.Context) (*auth.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := v.(*auth.Session)
	return sess, ok && sess != nil
}

// LoginURL is the login page remembering next as the post-login target
func LoginURL(next string) string {
	next = SafeNext(next)
	if next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeNext keeps next only when it is a path on this site, otherwise "/"
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// resolveSession validates the session cookie, if any
func resolveSession(c *gin.Context, v SessionValidator) (*auth.Session, bool) {
	token, err := c.Cookie(SessionCookie) // Get session cookie
	if err != nil || token == "" {
		return nil, false
	}
	sess, err := v.Validate(c.Request.Context(), token)
	if err != nil {
		// Plain expiry is routine; anything else means the session store is in trouble
		if !errors.Is(err, auth.ErrUnauthenticated) {
			logrus.WithError(err).Error("Session validation failed")
		}
		return nil, false
	}
	return sess, true
}
