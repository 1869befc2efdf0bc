package api

import (
	"net/http"                      // HTTP status codes
	"smart_bin/internal/flash"      // Status messages across redirects
	"smart_bin/internal/middleware" // Session lookup

	"github.com/gin-gonic/gin" // Gin web framework
)

// IndexHandler renders the dashboard; bin data is fetched by the page from /level
func IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := middleware.CurrentSession(c) // Set by RequireSession
		c.HTML(http.StatusOK, "index.tmpl", gin.H{
			"Username": sess.Username, // Shown in the header
			"Messages": flash.Pop(c),  // Messages from the previous redirect
		})
	}
}
