package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/api"
	"github.com/nikohapp/nikoh-api/internal/admin"
	"github.com/nikohapp/nikoh-api/internal/config"
	"github.com/nikohapp/nikoh-api/internal/database"
	"github.com/nikohapp/nikoh-api/internal/events"
	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/internal/interests"
	"github.com/nikohapp/nikoh-api/internal/matches"
	"github.com/nikohapp/nikoh-api/internal/messages"
	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/internal/preferences"
	"github.com/nikohapp/nikoh-api/internal/profiles"
	"github.com/nikohapp/nikoh-api/internal/reports"
	"github.com/nikohapp/nikoh-api/internal/verifications"
)

func newTestServer(t *testing.T) *api.Server {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	bus := events.NewNopBus()

	identitySvc, err := identities.NewService(logger, db, nil, bus, "test-secret", 1)
	require.NoError(t, err)
	profileSvc, err := profiles.NewService(logger, db)
	require.NoError(t, err)
	interestSvc, err := interests.NewService(logger, db, nil, bus)
	require.NoError(t, err)
	matchSvc, err := matches.NewService(logger, db, nil)
	require.NoError(t, err)
	hub := messages.NewHub(logger)
	messageSvc, err := messages.NewService(logger, db, hub)
	require.NoError(t, err)
	preferenceSvc, err := preferences.NewService(logger, db)
	require.NoError(t, err)
	storage, err := verifications.NewStorage(t.TempDir(), 10<<20)
	require.NoError(t, err)
	verificationSvc, err := verifications.NewService(logger, db, storage, nil, nil, bus, verifications.Settings{
		AutoApproveThreshold: 0.85,
		AutoRejectThreshold:  0.40,
		ValidityDays:         365,
	})
	require.NoError(t, err)
	paymentSvc, err := payments.NewService(logger, db, nil, bus, payments.PriceTable{
		Currency: "eur", StandardPrice: 2999, PriorityPrice: 4999, RenewalPrice: 1499,
	}, "pk_test_123", "whsec_test")
	require.NoError(t, err)
	reportSvc, err := reports.NewService(logger, db)
	require.NoError(t, err)
	adminSvc, err := admin.NewService(logger, db)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Server.RateLimit = "100-M"

	server, err := api.NewServer(logger, cfg, api.Services{
		Identities:    identitySvc,
		Profiles:      profileSvc,
		Interests:     interestSvc,
		Matches:       matchSvc,
		Messages:      messageSvc,
		ChatHub:       hub,
		Preferences:   preferenceSvc,
		Verifications: verificationSvc,
		Payments:      paymentSvc,
		Reports:       reportSvc,
		Admin:         adminSvc,
	})
	require.NoError(t, err)
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		server.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	}
}

func TestRegisterLoginMeFlow(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	// Register
	payload := `{"email":"flow@example.com","password":"password123"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Login is form-encoded
	form := url.Values{}
	form.Set("username", "flow@example.com")
	form.Set("password", "password123")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "bearer", login.TokenType)
	require.NotEmpty(t, login.AccessToken)

	// The token opens protected routes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "flow@example.com", me["email"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/profiles/me", "/api/v1/matches"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestRouteSurface(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	// Registered protected routes answer 401 without a token; an
	// unregistered path would answer 404.
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/payments/create-intent"},
		{http.MethodPost, "/api/v1/verifications/upload"},
		{http.MethodGet, "/api/v1/verifications/selfie"},
		{http.MethodGet, "/api/v1/verifications/selfie/status"},
		{http.MethodDelete, "/api/v1/verifications/selfie"},
		{http.MethodGet, "/api/v1/ws/chat"},
		{http.MethodPost, "/api/v1/preferences"},
		{http.MethodGet, "/api/v1/admin/verifications/11111111-1111-1111-1111-111111111111"},
		{http.MethodPost, "/api/v1/admin/verifications/11111111-1111-1111-1111-111111111111/run-ocr"},
		{http.MethodGet, "/api/v1/admin/reports/11111111-1111-1111-1111-111111111111"},
	}
	for _, r := range routes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(r.method, r.path, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	server := newTestServer(t)
	router := server.Router()

	// Register and log in as a regular user
	payload := `{"email":"pleb@example.com","password":"password123"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	form := url.Values{}
	form.Set("username", "pleb@example.com")
	form.Set("password", "password123")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPublicPricing(t *testing.T) {
	server := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/pricing", nil)
	server.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var pricing struct {
		Currency string `json:"currency"`
		Options  []struct {
			PaymentType string `json:"payment_type"`
			Amount      int64  `json:"amount"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pricing))
	assert.Equal(t, "eur", pricing.Currency)
	assert.Len(t, pricing.Options, 3)
}
