package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/logger"
)

type stubValidator struct {
	claims map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newValidator() stubValidator {
	return stubValidator{claims: map[string]*models.JWTClaims{
		"teacher-token": {UserID: "t1", Role: models.RoleTeacher, RegisteredClaims: jwt.RegisteredClaims{Subject: "t1"}},
		"student-token": {UserID: "s1", Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{Subject: "s1"}},
	}}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	final := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"actor": c.GetString(logger.ActorKey)})
	}
	r.GET("/users/:userID", append(handlers, final)...)
	return r
}

func do(r http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func TestJWTAcceptsCookieAndBearer(t *testing.T) {
	r := newRouter(JWT(newValidator()))

	w := do(r, "/users/t1", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "teacher-token"})
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actor":"t1"`)

	w = do(r, "/users/s1", bearer("student-token"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actor":"s1"`)
}

func TestJWTRejectsMissingOrInvalidToken(t *testing.T) {
	r := newRouter(JWT(newValidator()))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/t1", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/t1", bearer("forged")).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/t1", func(req *http.Request) {
		req.Header.Set("Authorization", "Basic abc")
	}).Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := newRouter(OptionalJWT(newValidator()))

	w := do(r, "/users/x", bearer("forged"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"actor":""`)
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(JWT(newValidator()), RequireRoles(models.RoleTeacher))

	assert.Equal(t, http.StatusOK, do(r, "/users/t1", bearer("teacher-token")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/users/s1", bearer("student-token")).Code)

	bare := newRouter(RequireRoles(models.RoleTeacher))
	assert.Equal(t, http.StatusUnauthorized, do(bare, "/users/t1", nil).Code)
}

func TestRequireSelf(t *testing.T) {
	r := newRouter(JWT(newValidator()), RequireSelf("userID"))

	assert.Equal(t, http.StatusOK, do(r, "/users/s1", bearer("student-token")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/users/t1", bearer("student-token")).Code)
}

func TestIsSelf(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1"}
	assert.True(t, IsSelf(claims, "u1"))
	assert.True(t, IsSelf(claims, ""))
	assert.False(t, IsSelf(claims, "u2"))
	assert.False(t, IsSelf(nil, "u1"))
}

func TestRateLimiterRejectsBeyondBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 1, Burst: 2, CleanupInterval: time.Minute}, nil)
	defer rl.Stop()
	r := newRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, do(r, "/users/a", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, "/users/a", nil).Code)
	w := do(r, "/users/a", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	other := do(r, "/users/a", func(req *http.Request) { req.RemoteAddr = "10.0.0.9:1234" })
	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, 2, rl.ClientCount())
}

func TestRateLimiterCleanupDropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{PerMinute: 60, CleanupInterval: time.Minute}, nil)
	defer rl.Stop()
	rl.limiterFor("10.0.0.1")

	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.ClientCount())
	rl.cleanup(time.Now().Add(3 * time.Minute))
	assert.Equal(t, 0, rl.ClientCount())
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))

	require.Equal(t, http.StatusOK, do(r, "/users/abc", nil).Code)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `http_requests_total{method="GET",path="/users/:userID",status="200"} 1`)
}

type observation struct {
	method, path string
	status       int
}

type recordingObserver struct{ seen []observation }

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{method, path, status})
}

func TestMetricsSkipsProbesAndLabelsUnmatched(t *testing.T) {
	obs := &recordingObserver{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(obs, "/health"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/users/:userID", ok)

	do(r, "/health", nil)
	do(r, "/nowhere", nil)
	do(r, "/users/u1", nil)

	assert.Equal(t, []observation{
		{http.MethodGet, "unmatched", http.StatusNotFound},
		{http.MethodGet, "/users/:userID", http.StatusOK},
	}, obs.seen)
}

func TestMetricsToleratesNilService(t *testing.T) {
	r := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusOK, do(r, "/users/abc", nil).Code)
}
