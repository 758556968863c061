package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Osman8a/TDAH-REST-API/internal/config"
	"github.com/Osman8a/TDAH-REST-API/internal/handlers"
	"github.com/Osman8a/TDAH-REST-API/internal/metrics"
	"github.com/Osman8a/TDAH-REST-API/internal/repository"
	"github.com/Osman8a/TDAH-REST-API/internal/security"
	"github.com/Osman8a/TDAH-REST-API/internal/service"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := security.NewPasswordHasher(security.PasswordOptions{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	codec, err := security.NewJWTCodec("test-secret", 0)
	require.NoError(t, err)

	m := metrics.New()
	store := repository.NewMemoryStore()
	accounts := service.NewAccountService(service.Deps{
		Users:    store,
		Sessions: store,
		Hasher:   hasher,
		Codec:    codec,
		Metrics:  m,
		Log:      zerolog.Nop(),
	})

	cfg := &config.AppConfig{Environment: "test", HTTP: config.HTTPConfig{Port: 3000}}
	return NewHTTPServer(cfg, zerolog.Nop(), handlers.NewHandlerSet(zerolog.Nop(), cfg.Environment, accounts, nil, nil), m)
}

func TestServer_RoutesAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/advisor/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `advisor_http_requests_total{method="GET",route="/api/advisor/me",status="401"} 1`)
}

func TestServer_Addr(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, ":3000", srv.server.Addr)
}
