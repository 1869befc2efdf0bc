package middleware

import (
	"errors"                    // Error inspection
	"net/http"                  // HTTP status codes
	"smart_bin/internal/domain" // Importing domain models
	"smart_bin/internal/flash"  // Status messages across redirects

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ActiveUserMiddleware checks on each request that the session's user still exists.
// It must run after RequireSession.
func ActiveUserMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := CurrentSession(c) // Get session from context
		// Check if a session exists in context
		if !ok {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		var user domain.User // Fetch user from database
		err := db.WithContext(c.Request.Context()).Select("id").First(&user, sess.UserID).Error
		if err == nil {
			c.Next() // User still exists, proceed
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithFields(logrus.Fields{
				"user_id": sess.UserID, // Session owner
				"error":   err.Error(), // Error message
			}).Error("User lookup failed")
			c.String(http.StatusInternalServerError, "Erreur interne.")
			c.Abort()
			return
		}
		// Account removed since login
		c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		flash.Add(c, flash.Warning, "Votre compte n'existe plus.")
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}
