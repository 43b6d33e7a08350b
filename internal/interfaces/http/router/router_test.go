package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	r := NewRouter(gin.New())

	r.Register(NewDomainGroup("a", "/a")).Register(NewDomainGroup("b", "/b"), NewDomainGroup("c", "/c"))

	assert.Len(t, r.registrars, 3)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("stock", "/stock").GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "levels")
	})

	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v2/stock")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "levels", w.Body.String())
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/stock").Code)
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("products", "/products")
	assert.Equal(t, "products", g.Name())
	assert.Equal(t, "/products", g.Prefix())

	reply := func(status int) gin.HandlerFunc {
		return func(c *gin.Context) { c.Status(status) }
	}
	g.POST("", reply(http.StatusCreated)).
		GET("/:id", reply(http.StatusOK)).
		PATCH("/:id", reply(http.StatusAccepted))

	engine := gin.New()
	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodPost, "/api/v1/products", http.StatusCreated},
		{http.MethodGet, "/api/v1/products/42", http.StatusOK},
		{http.MethodPatch, "/api/v1/products/42", http.StatusAccepted},
		{http.MethodDelete, "/api/v1/products/42", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(engine, tt.method, tt.path).Code)
		})
	}
}

func TestDomainGroup_RouteMiddleware(t *testing.T) {
	var order []string
	step := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { order = append(order, name) }
	}

	engine := gin.New()
	NewDomainGroup("inbound", "/inbound").
		GET("", step("first"), step("second")).
		RegisterRoutes(engine.Group("/api/v1"))

	serve(engine, http.MethodGet, "/api/v1/inbound")

	assert.Equal(t, []string{"first", "second"}, order)
}
