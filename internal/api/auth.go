package api

import (
	"errors"                        // Error inspection
	"net/http"                      // HTTP status codes
	"smart_bin/internal/auth"       // Session gate
	"smart_bin/internal/flash"      // Status messages across redirects
	"smart_bin/internal/metrics"    // Prometheus collectors
	"smart_bin/internal/middleware" // Session cookie helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// LoginPageHandler shows the login form, or sends logged in users to the dashboard
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.CurrentSession(c); ok {
			c.Redirect(http.StatusFound, "/")
			return
		}
		renderLogin(c, http.StatusOK, "")
	}
}

// LoginHandler checks the submitted credentials and opens a session
func LoginHandler(svc *auth.Service, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.CurrentSession(c); ok {
			c.Redirect(http.StatusFound, "/")
			return
		}
		username := c.PostForm("username") // Form field
		password := c.PostForm("password") // Form field
		sess, token, err := svc.Authenticate(c.Request.Context(), username, password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.RecordLogin(false)
			logrus.WithField("username", username).Warn("Failed login attempt")
			renderLogin(c, http.StatusUnauthorized, "Identifiants incorrects. Veuillez réessayer.")
			return
		}
		if err != nil {
			logrus.WithError(err).Error("Login failed")
			renderLogin(c, http.StatusInternalServerError, "Erreur interne, veuillez réessayer plus tard.")
			return
		}
		metrics.RecordLogin(true)
		logrus.WithFields(logrus.Fields{
			"user_id":    sess.UserID, // Authenticated user
			"session_id": sess.ID,     // New session
		}).Info("User logged in")
		// Set session cookie with secure flags
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, token, int(svc.TTL().Seconds()), "/", "", secure, true)
		flash.Add(c, flash.Success, "Connexion réussie !")
		c.Redirect(http.StatusFound, middleware.SafeNext(c.Query("next")))
	}
}

// LogoutHandler ends the session and returns to the login page
func LogoutHandler(svc *auth.Service, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(middleware.SessionCookie); err == nil {
			if err := svc.Logout(c.Request.Context(), token); err != nil {
				logrus.WithError(err).Error("Logout failed")
			}
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", secure, true) // Drop the cookie
		flash.Add(c, flash.Info, "Vous avez été déconnecté.")
		c.Redirect(http.StatusFound, "/login")
	}
}

// renderLogin renders the login page with pending flash messages
func renderLogin(c *gin.Context, status int, errMsg string) {
	c.HTML(status, "login.tmpl", gin.H{
		"Error":    errMsg,          // Inline error under the form
		"Next":     c.Query("next"), // Preserved post-login target
		"Messages": flash.Pop(c),    // Messages from the previous redirect
	})
}
