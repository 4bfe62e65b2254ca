package devices

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"callsync-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, role string, mw ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", "d", role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}, mw...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	if code := serve(t, RolePrimary, RequireDevice(), RequireAnyRole(RolePrimary)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesOtherRole(t *testing.T) {
	if code := serve(t, RoleLinked, RequireDevice(), RequireAnyRole(RolePrimary)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_DeniesUnknownRole(t *testing.T) {
	if code := serve(t, "superuser", RequireDevice(), RequireAnyRole(RolePrimary, RoleLinked)); code != 403 {
		t.Fatalf("expected 403 for unknown role, got %d", code)
	}
}

func TestRequireDevice_MissingDevice(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", "", RolePrimary)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}, RequireDevice(), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
