package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"voltflow-backend/config"
	"voltflow-backend/controllers"
	"voltflow-backend/models"
	"voltflow-backend/services"
	"voltflow-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConversation struct{}

func (nopConversation) HandleInbound(context.Context, string, string) (services.Decision, error) {
	return services.Decision{Action: services.ActionDelegateToGenerator}, nil
}

type nopVoicemail struct{}

func (nopVoicemail) Process(context.Context, services.VoicemailInput) (*models.Voicemail, error) {
	return &models.Voicemail{}, nil
}

type nopMissedCall struct{}

func (nopMissedCall) HandleCallStatus(context.Context, string, string) (services.MissedCallResult, error) {
	return services.MissedCallIgnored, nil
}

type nopRegistrar struct{}

func (nopRegistrar) Register(context.Context, services.RegisterInput) (*services.Registration, error) {
	return &services.Registration{}, nil
}

type emptyHistory struct{}

func (emptyHistory) RecentMessages(context.Context, string, int) ([]models.Message, error) {
	return nil, nil
}

func (emptyHistory) VoicemailsForPhone(context.Context, string, int) ([]models.Voicemail, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{BaseURL: "https://assist.example.com", CORSOrigins: []string{"http://localhost:3000"}},
		Twilio:    config.TwilioConfig{AuthToken: "token"},
		Business:  config.BusinessConfig{CallingCode: "61"},
		RateLimit: config.RateLimitConfig{Max: 5, Window: time.Minute},
	}
}

func newTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return SetupRouter(Deps{
		Config:    cfg,
		Limiter:   utils.NewMemoryLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window),
		SMS:       controllers.NewSMSController(nopConversation{}),
		Voice:     controllers.NewVoiceController(nopVoicemail{}, nopMissedCall{}, cfg.App.BaseURL),
		Register:  controllers.NewRegisterController(nopRegistrar{}),
		Dashboard: controllers.NewDashboardController(emptyHistory{}, cfg.Business.CallingCode),
		Health:    controllers.NewHealthController(func() error { return nil }),
	})
}

func do(r http.Handler, method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestRouter(testConfig())

	want := map[string]bool{
		"GET /health": false, "GET /metrics": false,
		"POST /sms": false, "POST /voice": false, "POST /voicemail": false, "POST /call-status": false,
		"POST /register": false, "GET /dashboard": false, "GET /dashboard/view": false, "GET /api/messages": false,
	}
	for _, route := range r.Routes() {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, route)
	}
}

func TestSMSRateLimit(t *testing.T) {
	r := newTestRouter(testConfig())
	form := url.Values{"From": {"0412345678"}, "Body": {"hello there"}}

	for i := 0; i < 5; i++ {
		w := do(r, http.MethodPost, "/sms", form)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := do(r, http.MethodPost, "/sms", form)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests, please try again later.", w.Body.String())

	// same sender in another format shares the window
	w = do(r, http.MethodPost, "/sms", url.Values{"From": {"+61412345678"}, "Body": {"hello there"}})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = do(r, http.MethodPost, "/sms", url.Values{"From": {"+61400000000"}, "Body": {"hello there"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignatureValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Twilio.ValidateSignature = true
	r := newTestRouter(cfg)

	w := do(r, http.MethodPost, "/voice", url.Values{"From": {"+61412345678"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardTokenRequiredWhenSecretSet(t *testing.T) {
	cfg := testConfig()
	cfg.Dashboard = config.DashboardConfig{Secret: "s3cret", TokenTTL: time.Hour}
	r := newTestRouter(cfg)

	w := do(r, http.MethodGet, "/dashboard/view?phone=%2B61412345678", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := utils.GenerateDashboardToken("+61412345678", "s3cret", time.Hour)
	require.NoError(t, err)

	w = do(r, http.MethodGet, "/dashboard/view?phone=0412345678&token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/messages?phone=%2B61400000000&token="+token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code, "lookup form stays open")
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(testConfig())
	do(r, http.MethodGet, "/health", nil)

	w := do(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCORSOnAPI(t *testing.T) {
	r := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/messages?phone=%2B61412345678", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
