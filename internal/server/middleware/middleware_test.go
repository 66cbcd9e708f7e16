package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afx-market/internal/common"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIdentityHeader(t *testing.T) {
	engine := gin.New()
	engine.Use(Identity())
	engine.GET("/whoami", func(c *gin.Context) {
		id, ok := UserID(c)
		c.JSON(http.StatusOK, gin.H{"known": ok, "id": id})
	})

	t.Run("valid header", func(t *testing.T) {
		id := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", id.String())
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), `"known":true`)
		assert.Contains(t, rec.Body.String(), id.String())
	})

	t.Run("garbage header is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("X-User-ID", "not-a-uuid")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), `"known":false`)
	})
}

func TestRequireUserAborts(t *testing.T) {
	engine := gin.New()
	engine.Use(Identity())
	engine.GET("/private", func(c *gin.Context) {
		if _, ok := RequireUser(c); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRespondErrorStatusMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", common.Validationf("bad"), http.StatusUnprocessableEntity},
		{"conflict", common.ErrAdExhausted, http.StatusConflict},
		{"auth", common.ErrUnauthenticated, http.StatusUnauthorized},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := gin.New()
			engine.GET("/fail", func(c *gin.Context) {
				RespondError(c, tc.err)
			})

			req := httptest.NewRequest(http.MethodGet, "/fail", nil)
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	engine := gin.New()
	engine.GET("/fail", func(c *gin.Context) {
		RespondError(c, errors.New("pq: connection refused on 10.0.0.5"))
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Close()

	engine := gin.New()
	engine.Use(Identity(), rl.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	id := uuid.New().String()
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User-ID", id)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	engine := gin.New()
	engine.Use(Identity(), rl.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User-ID", uuid.New().String())
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "a fresh identity gets a fresh bucket")
	}
}
