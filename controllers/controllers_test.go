package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"voltflow-backend/models"
	"voltflow-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type stubConversation struct {
	decision services.Decision
	err      error
	from     string
	body     string
}

func (s *stubConversation) HandleInbound(_ context.Context, from, body string) (services.Decision, error) {
	s.from, s.body = from, body
	return s.decision, s.err
}

func TestSMSInboundResponses(t *testing.T) {
	tests := []struct {
		name     string
		decision services.Decision
		err      error
		status   int
		body     string
	}{
		{"low intent", services.Decision{Action: services.ActionIgnoreLowIntent}, nil, http.StatusOK, "Low intent message ignored"},
		{"intro", services.Decision{Action: services.ActionSendIntro}, nil, http.StatusOK, "AI assistant intro sent"},
		{"name request", services.Decision{Action: services.ActionRequestName}, nil, http.StatusOK, "Asked for customer name"},
		{"name captured", services.Decision{Action: services.ActionConfirmBooking, Name: "Dave", CaptureName: true}, nil, http.StatusOK, "Saved customer name and confirmed booking"},
		{"booking", services.Decision{Action: services.ActionConfirmBooking, Name: "Dave"}, nil, http.StatusOK, "Booking handled"},
		{"generator", services.Decision{Action: services.ActionDelegateToGenerator}, nil, http.StatusOK, "AI handled"},
		{"failure", services.Decision{Action: services.ActionDelegateToGenerator}, errors.New("send failed"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &stubConversation{decision: tt.decision, err: tt.err}
			r := gin.New()
			r.POST("/sms", NewSMSController(conv).Inbound)

			w := postForm(r, "/sms", url.Values{"From": {"+61412345678"}, "Body": {"hello there"}})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, "+61412345678", conv.from)
			assert.Equal(t, "hello there", conv.body)
		})
	}
}

func TestSMSInboundMissingFrom(t *testing.T) {
	r := gin.New()
	r.POST("/sms", NewSMSController(&stubConversation{}).Inbound)

	w := postForm(r, "/sms", url.Values{"Body": {"hello"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type stubVoicemail struct {
	err error
	in  services.VoicemailInput
}

func (s *stubVoicemail) Process(_ context.Context, in services.VoicemailInput) (*models.Voicemail, error) {
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return &models.Voicemail{Phone: in.From}, nil
}

type stubMissedCall struct {
	result services.MissedCallResult
	err    error
}

func (s *stubMissedCall) HandleCallStatus(context.Context, string, string) (services.MissedCallResult, error) {
	return s.result, s.err
}

func newVoiceRouter(vm *stubVoicemail, mc *stubMissedCall) *gin.Engine {
	ctl := NewVoiceController(vm, mc, "https://assist.example.com")
	r := gin.New()
	r.POST("/voice", ctl.Voice)
	r.POST("/voicemail", ctl.Voicemail)
	r.POST("/call-status", ctl.CallStatus)
	return r
}

func TestVoiceTwiML(t *testing.T) {
	r := newVoiceRouter(&stubVoicemail{}, &stubMissedCall{})

	w := postForm(r, "/voice", url.Values{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")

	body := w.Body.String()
	assert.Contains(t, body, "<Say>Hi there! The tradie is currently unavailable.")
	assert.Contains(t, body, `maxLength="60"`)
	assert.Contains(t, body, `transcribeCallback="https://assist.example.com/voicemail"`)
	assert.Contains(t, body, `action="https://assist.example.com/voicemail"`)
	assert.Contains(t, body, "<Hangup")
}

func TestVoicemailResponses(t *testing.T) {
	vm := &stubVoicemail{}
	r := newVoiceRouter(vm, &stubMissedCall{})

	w := postForm(r, "/voicemail", url.Values{
		"From":              {"+61412345678"},
		"RecordingUrl":      {"https://api.twilio.com/RE1"},
		"TranscriptionText": {"call me back"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Voicemail processed", w.Body.String())
	assert.Equal(t, "https://api.twilio.com/RE1", vm.in.RecordingURL)
	assert.Equal(t, "call me back", vm.in.TranscriptionText)

	vm.err = services.ErrNoReply
	w = postForm(r, "/voicemail", url.Values{"From": {"+61412345678"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No AI reply generated", w.Body.String())

	vm.err = fmt.Errorf("%w: %w", services.ErrReplyFailed, errors.New("openai down"))
	w = postForm(r, "/voicemail", url.Values{"From": {"+61412345678"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "OpenAI failed", w.Body.String())

	vm.err = errors.New("db down")
	w = postForm(r, "/voicemail", url.Values{"From": {"+61412345678"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Voicemail handling failed", w.Body.String())

	w = postForm(r, "/voicemail", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallStatusAlwaysOK(t *testing.T) {
	mc := &stubMissedCall{result: services.MissedCallReplied}
	r := newVoiceRouter(&stubVoicemail{}, mc)

	w := postForm(r, "/call-status", url.Values{"CallStatus": {"no-answer"}, "From": {"+61412345678"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Call status processed", w.Body.String())

	mc.result = services.MissedCallSuppressed
	w = postForm(r, "/call-status", url.Values{"CallStatus": {"busy"}, "From": {"+61412345678"}})
	assert.Equal(t, "Intro recently sent. Skipping.", w.Body.String())

	mc.result, mc.err = services.MissedCallIgnored, errors.New("twilio down")
	w = postForm(r, "/call-status", url.Values{"CallStatus": {"busy"}, "From": {"+61412345678"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Call status processed", w.Body.String())
}

type stubRegistrar struct {
	err error
	in  services.RegisterInput
}

func (s *stubRegistrar) Register(_ context.Context, in services.RegisterInput) (*services.Registration, error) {
	s.in = in
	if s.err != nil {
		return nil, s.err
	}
	return &services.Registration{
		Tradie:       &models.Tradie{Name: in.Name, Phone: in.Phone},
		DashboardURL: "https://assist.example.com/dashboard/view?phone=%2B61412345678",
	}, nil
}

func TestRegister(t *testing.T) {
	reg := &stubRegistrar{}
	r := gin.New()
	r.POST("/register", NewRegisterController(reg).Register)

	body := `{"name":"Sam","business":"Sam's Sparks","email":"sam@example.com","phoneRaw":"0412 345 678"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Contains(t, resp["dashboardUrl"], "/dashboard/view")
	assert.Equal(t, "0412 345 678", reg.in.Phone)

	w = postForm(r, "/register", url.Values{"name": {"Sam"}, "business": {"B"}, "email": {"e@x.com"}, "phone": {"0412345678"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0412345678", reg.in.Phone)
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{services.ErrMissingFields, http.StatusBadRequest},
		{services.ErrDuplicatePhone, http.StatusConflict},
		{services.ErrAssistantNumberMissing, http.StatusInternalServerError},
		{errors.New("sms failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		r := gin.New()
		r.POST("/register", NewRegisterController(&stubRegistrar{err: tt.err}).Register)

		w := postForm(r, "/register", url.Values{"name": {"Sam"}})
		assert.Equal(t, tt.status, w.Code, tt.err.Error())
	}
}

type stubHistory struct {
	phone string
	err   error
}

func (s *stubHistory) RecentMessages(_ context.Context, phone string, _ int) ([]models.Message, error) {
	s.phone = phone
	if s.err != nil {
		return nil, s.err
	}
	return []models.Message{{
		Phone:     phone,
		Incoming:  "<script>alert(1)</script>",
		Outgoing:  "Thanks!",
		CreatedAt: time.Date(2026, 10, 18, 5, 0, 0, 0, time.UTC),
	}}, nil
}

func (s *stubHistory) VoicemailsForPhone(context.Context, string, int) ([]models.Voicemail, error) {
	return nil, nil
}

func newDashboardRouter(store *stubHistory) *gin.Engine {
	ctl := NewDashboardController(store, "61")
	r := gin.New()
	r.SetHTMLTemplate(DashboardTemplates())
	r.GET("/dashboard", ctl.Lookup)
	r.GET("/dashboard/view", ctl.View)
	r.GET("/api/messages", ctl.Messages)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardViewEscapesHistory(t *testing.T) {
	store := &stubHistory{}
	r := newDashboardRouter(store)

	w := get(r, "/dashboard/view?phone=0412345678")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+61412345678", store.phone)

	body := w.Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "No voicemails yet.")
}

func TestDashboardViewRequiresPhone(t *testing.T) {
	r := newDashboardRouter(&stubHistory{})

	w := get(r, "/dashboard/view")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Phone number required", w.Body.String())

	w = get(r, "/dashboard/view?phone=%2B61412345678")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardLookup(t *testing.T) {
	r := newDashboardRouter(&stubHistory{})

	w := get(r, "/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<form")

	w = get(r, "/dashboard?phone=0412+345+678&token=abc")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/view?phone=%2B61412345678&token=abc", w.Header().Get("Location"))
}

func TestAPIMessages(t *testing.T) {
	store := &stubHistory{}
	r := newDashboardRouter(store)

	w := get(r, "/api/messages?phone=%2B61412345678")
	require.Equal(t, http.StatusOK, w.Code)

	var resp History
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 1)
	assert.NotNil(t, resp.Voicemails)

	store.err = errors.New("db down")
	w = get(r, "/api/messages?phone=%2B61412345678")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get(r, "/api/messages")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	var pingErr error
	r := gin.New()
	r.GET("/health", NewHealthController(func() error { return pingErr }).Health)

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	pingErr = errors.New("down")
	w = get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
