package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"nrm-schedules/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("secret"))))

	r.GET("/login/:role", func(c *gin.Context) {
		sess := sessions.Default(c)
		sess.Set("user_id", "u1")
		sess.Set("role", c.Param("role"))
		_ = sess.Save()
		c.Status(http.StatusNoContent)
	})

	auth := r.Group("/api", RequireAuth(), RequestLogger())
	auth.GET("/read", func(c *gin.Context) { c.Status(http.StatusOK) })
	auth.POST("/write", RequireRole(models.RoleAdmin, models.RoleEditor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func loginCookie(t *testing.T, r *gin.Engine, role string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+role, nil))
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie")
	}
	return cookies[0]
}

func do(r *gin.Engine, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newTestRouter()

	w := do(r, http.MethodGet, "/api/read", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"login required"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/read", loginCookie(t, r, "viewer"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := newTestRouter()

	w := do(r, http.MethodPost, "/api/write", loginCookie(t, r, "viewer"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/api/write", loginCookie(t, r, "editor"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCurrentUser(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentUser(c)
	assert.False(t, ok)

	c.Set(CurrentUserKey, models.User{Username: "ann"})
	u, ok := CurrentUser(c)
	assert.True(t, ok)
	assert.Equal(t, "ann", u.Username)
}
