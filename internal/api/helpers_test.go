package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"smart_bin/internal/auth"
	"smart_bin/internal/cache"
	"smart_bin/internal/flash"
	"smart_bin/internal/middleware"
	"smart_bin/internal/service"
	"smart_bin/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type harness struct {
	t      *testing.T
	db     *gorm.DB
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *clock
	auth   *auth.Service
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	c := &clock{t: t0}
	authSvc := auth.NewService(db, rdb, "test-secret", 30*time.Minute)
	router := NewRouter(Deps{
		DB:        db,
		Redis:     rdb,
		Bins:      service.NewBinService(db).WithClock(c.Now),
		Auth:      authSvc,
		Snapshots: cache.NewSnapshotCache(rdb, time.Minute),
	})
	return &harness{t: t, db: db, mr: mr, rdb: rdb, clock: c, auth: authSvc, router: router}
}

func (h *harness) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// login opens a session for a fresh admin user and returns its cookie
func (h *harness) login() *http.Cookie {
	h.t.Helper()
	testutil.CreateUser(h.t, h.db, "admin", "adminpassword")
	_, token, err := h.auth.Authenticate(context.Background(), "admin", "adminpassword")
	require.NoError(h.t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			found = ck
		}
	}
	return found
}

// flashes decodes the messages left in the flash cookie of rec
func flashes(t *testing.T, rec *httptest.ResponseRecorder) []flash.Message {
	t.Helper()
	ck := responseCookie(rec, "smart_bin_flash")
	if ck == nil || ck.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	require.NoError(t, err)
	var msgs []flash.Message
	require.NoError(t, json.Unmarshal(b, &msgs))
	return msgs
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}
