package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccessAndCreated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, map[string]string{"k": "v"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	Created(c, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPaginated(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Paginated(c, []int{1, 2}, PageMeta{Page: 1, Size: 2, Total: 7})

	var body struct {
		Meta PageMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, PageMeta{Page: 1, Size: 2, Total: 7}, body.Meta)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(c *gin.Context)
		status int
		code   string
	}{
		{"bad request", func(c *gin.Context) { BadRequest(c, "bad") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"not found", func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "who") }, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "no") }, http.StatusForbidden, "FORBIDDEN"},
		{"internal", func(c *gin.Context) { InternalError(c, errors.New("boom")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestAbortStopsChain(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Forbidden(c, "no")
	assert.True(t, c.IsAborted())
}
