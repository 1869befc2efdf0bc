// Package flash carries one-shot status messages across a redirect in a cookie.
package flash

import (
	"encoding/base64" // Cookie-safe encoding
	"encoding/json"   // Message list encoding
	"net/http"        // Cookie attributes

	"github.com/gin-gonic/gin" // Gin web framework
)

// Message categories, matching the alert styles of the pages
const (
	Success = "success"
	Info    = "info"
	Warning = "warning"
	Danger  = "danger"
)

const (
	cookieName = "smart_bin_flash" // Cookie holding pending messages
	contextKey = "flash.pending"   // Messages queued during this request
)

// Message is one status line shown on the next rendered page
type Message struct {
	Category string `json:"category"` // One of the category constants
	Text     string `json:"text"`     // User facing text
}

// Add queues a message for the next rendered page
func Add(c *gin.Context, category, text string) {
	msgs := append(pending(c), Message{Category: category, Text: text})
	c.Set(contextKey, msgs)
	write(c, msgs)
}

// Pop returns the queued messages and clears them
func Pop(c *gin.Context) []Message {
	msgs := pending(c)
	c.Set(contextKey, []Message{})
	if _, err := c.Cookie(cookieName); err == nil || len(msgs) > 0 {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, "", -1, "/", "", false, true) // Expire the cookie
	}
	return msgs
}

// pending returns messages queued in this request, falling back to the request cookie
func pending(c *gin.Context) []Message {
	if v, ok := c.Get(contextKey); ok {
		if msgs, ok := v.([]Message); ok {
			return msgs
		}
	}
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil // Unreadable cookies are dropped
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil
	}
	return msgs
}

// write stores msgs in the response cookie
func write(c *gin.Context, msgs []Message) {
	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, base64.RawURLEncoding.EncodeToString(b), 0, "/", "", false, true)
}
