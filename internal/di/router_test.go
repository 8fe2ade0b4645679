package di

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/internal/token"
	"github.com/prohmpiriya/storefront/pkg/middleware"
	"github.com/prohmpiriya/storefront/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorData `json:"error"`
	Meta    *response.PageMeta  `json:"meta"`
}

type testServer struct {
	t      *testing.T
	c      *Container
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c := NewContainer(&ContainerConfig{
		Token: token.Config{
			Secret: "router-test-secret-that-is-long-enough",
			TTL:    time.Hour,
			Issuer: "storefront-test",
		},
		BcryptCost: bcrypt.MinCost,
		CatalogTTL: time.Minute,
	})
	router := NewRouter(c, RouterConfig{
		ServiceName: "storefront-test",
		Limiter: middleware.NewLocalRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: 1000,
			BurstSize:         1000,
		}),
		RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
	})
	return &testServer{t: t, c: c, router: router}
}

func (s *testServer) do(method, path, bearer string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *testServer) signup(email string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"email":      email,
		"password":   "password123",
	})
	require.Equal(s.t, http.StatusCreated, code)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &tok))
	return tok.AccessToken
}

func (s *testServer) admin() string {
	s.t.Helper()
	digest, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	require.NoError(s.t, err)
	now := time.Now()
	admin := &domain.User{
		ID:           uuid.New().String(),
		Email:        "admin@store.test",
		PasswordHash: string(digest),
		FirstName:    "Store",
		LastName:     "Admin",
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(s.t, s.c.UserRepo.Create(context.Background(), admin))

	raw, _, err := s.c.Tokens.Issue(admin.Principal())
	require.NoError(s.t, err)
	return raw
}

func (s *testServer) createProduct(adminToken, name, price string, stock int) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/admin/products", adminToken, map[string]interface{}{
		"name":              name,
		"description":       "demo",
		"price":             price,
		"quantity_in_stock": stock,
	})
	require.Equal(s.t, http.StatusCreated, code)
	var p struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &p))
	return p.ID
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AuthenticationBeforeAuthorization(t *testing.T) {
	s := newTestServer(t)
	userToken := s.signup("shopper@store.test")

	code, env := s.do(http.MethodGet, "/api/v1/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/admin/users", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(http.MethodGet, "/api/v1/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/admin/users?page=0&size=5", s.admin(), nil)
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
	assert.Equal(t, 5, env.Meta.Size)
}

func TestRouter_SignupSigninAndAccount(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup("a@b.com")

	code, env := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "a@b.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "a@b.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "a@b.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/user/current", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "a@b.com", me.Email)
	assert.Equal(t, "USER", me.Role)

	other := s.signup("other@b.com")
	code, _ = s.do(http.MethodPut, "/api/v1/user/"+me.ID, other, map[string]string{"first_name": "Eve"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/user", tok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/user/current", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "deleted users stop resolving")
}

func TestRouter_BindFailures(t *testing.T) {
	s := newTestServer(t)
	tok := s.signup("a@b.com")

	code, env := s.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/v1/user/cart", tok, map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestRouter_CartLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.admin()
	shopper := s.signup("shopper@store.test")
	p := s.createProduct(admin, "Widget", "2.50", 5)

	code, env := s.do(http.MethodGet, "/api/v1/user/cart", shopper, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/v1/user/cart", shopper, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": p, "quantity": 3}},
	})
	require.Equal(t, http.StatusOK, code)
	var cart struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	assert.Equal(t, "OPEN", cart.Status)
	assert.Equal(t, "7.5", cart.Amount)

	code, env = s.do(http.MethodPost, "/api/v1/user/cart", shopper, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": p, "quantity": 9}},
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)
	assert.Equal(t, p, env.Error.Details)

	code, _ = s.do(http.MethodPost, "/api/v1/user/cart/confirm", shopper, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodDelete, "/api/v1/user/cart/"+cart.ID, shopper, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CART_CONFIRMED", env.Error.Code)

	code, env = s.do(http.MethodGet, "/api/v1/user/cart/confirmed", shopper, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/admin/products", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var products []struct {
		QuantityInStock int `json:"quantity_in_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &products))
	require.Len(t, products, 1)
	assert.Equal(t, 2, products[0].QuantityInStock)

	code, env = s.do(http.MethodPost, "/api/v1/user/cart", shopper, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": p, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, code)
	var next struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &next))
	assert.NotEqual(t, cart.ID, next.ID)

	code, env = s.do(http.MethodDelete, "/api/v1/user/cart/"+next.ID, shopper, nil)
	require.Equal(t, http.StatusOK, code)
	var del struct {
		Deleted bool `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &del))
	assert.True(t, del.Deleted)

	code, env = s.do(http.MethodDelete, "/api/v1/user/cart/"+next.ID, shopper, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &del))
	assert.False(t, del.Deleted)

	code, env = s.do(http.MethodGet, "/api/v1/admin/carts", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Meta.Total)
}

func TestRouter_AdminProductManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.admin()
	shopper := s.signup("shopper@store.test")

	p := s.createProduct(admin, "Gadget", "10", 1)

	code, env := s.do(http.MethodPost, "/api/v1/admin/products", admin, map[string]interface{}{
		"name": "Gadget", "price": "1", "quantity_in_stock": 1,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/products", shopper, map[string]interface{}{
		"name": "Other", "price": "1", "quantity_in_stock": 1,
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, "/api/v1/admin/products/"+p+"/restock", admin, map[string]int64{"quantity": 1 << 40})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, env = s.do(http.MethodPost, "/api/v1/admin/products", admin, map[string]interface{}{
		"name": "Fraction", "price": "1.005", "quantity_in_stock": 1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = s.do(http.MethodPost, "/api/v1/admin/products/"+p+"/restock", admin, map[string]int{"quantity": 4})
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/user/products/"+p, shopper, nil)
	require.Equal(t, http.StatusOK, code)
	var got struct {
		QuantityInStock int `json:"quantity_in_stock"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 5, got.QuantityInStock)

	code, _ = s.do(http.MethodPut, "/api/v1/admin/products/"+p, admin, map[string]string{"price": "12.00"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/admin/products/"+p, admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/v1/user/products/"+p, shopper, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodGet, "/api/v1/user/products", shopper, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(0), env.Meta.Total)

	s.createProduct(admin, "Gadget", "10", 1)
}
