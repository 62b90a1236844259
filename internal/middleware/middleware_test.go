package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/duetable-api/internal/models"
	appErrors "github.com/noah-isme/duetable-api/pkg/errors"
)

type stubValidator struct {
	token string
}

func (s stubValidator) ValidateToken(token string) (*models.SessionClaims, error) {
	if token != s.token {
		return nil, appErrors.ErrNoSession
	}
	return &models.SessionClaims{Email: "ada@school.edu"}, nil
}

func sessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(stubValidator{token: "good"}))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).Email)
	})
	return r
}

func TestSessionGuard(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", status: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer  ", status: http.StatusUnauthorized},
		{name: "stale token", header: "Bearer old", status: http.StatusUnauthorized},
		{name: "valid", header: "bearer good", status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			sessionRouter().ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "ada@school.edu", w.Body.String())
			}
		})
	}
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (r *recordingObserver) ObserveHTTPRequest(_ string, path string, status int, _ time.Duration) {
	r.paths = append(r.paths, path)
	r.statuses = append(r.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.POST("/assignments/:id/finished", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/assignments/42/finished", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	require.Len(t, observer.paths, 2)
	assert.Equal(t, "/assignments/:id/finished", observer.paths[0])
	assert.Equal(t, http.StatusAccepted, observer.statuses[0])
	assert.Equal(t, "unmatched", observer.paths[1])
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "generation", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, true, meta[cacheHitKey])
	assert.Equal(t, 3, meta["generation"])
	assert.Contains(t, meta, "processing_time_ms")
}
