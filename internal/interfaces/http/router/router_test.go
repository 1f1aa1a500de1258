package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_DefaultsToV1(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouter_MountsGroupsUnderPrefix(t *testing.T) {
	engine := gin.New()

	customers := NewDomainGroup("ledger", "/customers")
	customers.GET("/:id/balance", func(c *gin.Context) {
		c.String(http.StatusOK, "0.00")
	})
	receivables := NewDomainGroup("receivables", "/receivables")
	receivables.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "total")
	})

	NewRouter(engine).Register(customers).Register(receivables).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customers/c-1/balance", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/receivables", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "total", w.Body.String())
}

func TestRouter_AppliesSharedMiddleware(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("system", "/system")
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	NewRouter(engine).
		Use(func(c *gin.Context) {
			c.Header("X-Api-Scope", "khata")
			c.Next()
		}).
		Register(group).
		Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "khata", w.Header().Get("X-Api-Scope"))
}

func TestDomainGroup_RegistersAllVerbs(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	group := NewDomainGroup("auth", "/auth")
	group.GET("/me", ok).
		POST("/login", ok).
		PUT("/password", ok).
		DELETE("/sessions/:id", ok)
	group.RegisterRoutes(engine.Group("/api/v1"))

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/auth/login"},
		{http.MethodPut, "/api/v1/auth/password"},
		{http.MethodDelete, "/api/v1/auth/sessions/s-1"},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDomainGroup_ScopedMiddleware(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("ledger", "/customers")
	group.Use(func(c *gin.Context) {
		c.Header("X-Group", "ledger")
		c.Next()
	})
	group.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })

	other := NewDomainGroup("system", "/system")
	other.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := engine.Group("/api/v1")
	group.RegisterRoutes(api)
	other.RegisterRoutes(api)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))
	assert.Equal(t, "ledger", w.Header().Get("X-Group"))

	// Middleware stays scoped to its own group.
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/ping", nil))
	assert.Empty(t, w.Header().Get("X-Group"))
}

func TestDomainGroup_Name(t *testing.T) {
	assert.Equal(t, "ledger", NewDomainGroup("ledger", "/customers").Name())
}
