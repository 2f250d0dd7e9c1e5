package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardTokenRoundTrip(t *testing.T) {
	token, err := GenerateDashboardToken("+61400000000", "s3cret", time.Hour)
	require.NoError(t, err)

	phone, err := ParseDashboardToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "+61400000000", phone)

	_, err = ParseDashboardToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDashboardTokenExpired(t *testing.T) {
	token, err := GenerateDashboardToken("+61400000000", "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseDashboardToken(token, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateDashboardTokenNeedsSecret(t *testing.T) {
	_, err := GenerateDashboardToken("+61400000000", "", time.Hour)
	assert.Error(t, err)
}

func TestDashboardAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/view", DashboardAuthMiddleware("s3cret", func(c *gin.Context) string {
		return c.Query("phone")
	}), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	token, err := GenerateDashboardToken("+61400000000", "s3cret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"missing token", "/view?phone=%2B61400000000", http.StatusUnauthorized},
		{"matching token", "/view?phone=%2B61400000000&token=" + token, http.StatusOK},
		{"other phone", "/view?phone=%2B61411111111&token=" + token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestDashboardAuthMiddlewareDisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/view", DashboardAuthMiddleware("", func(*gin.Context) string { return "" }), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/view", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTwilioSignatureMiddlewareRejectsUnsigned(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/sms", TwilioSignatureMiddleware("token", "https://volt-flow.example.com"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := postForm(r, "/sms", map[string][]string{"From": {"+61400000000"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
