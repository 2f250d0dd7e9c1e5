// utils/auth.go
package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/twilio/twilio-go/client"
)

var ErrInvalidToken = errors.New("invalid dashboard token")

// GenerateDashboardToken signs a link token that grants read access to one
// phone number's history
func GenerateDashboardToken(phone, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("dashboard secret not set")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   phone,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}

// ParseDashboardToken returns the phone number a valid token was issued for
func ParseDashboardToken(tokenString, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// DashboardAuthMiddleware requires a token matching the requested phone when
// a secret is configured. phoneOf extracts the normalized phone from the request.
func DashboardAuthMiddleware(secret string, phoneOf func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		subject, err := ParseDashboardToken(c.Query("token"), secret)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or missing token")
			return
		}
		if phone := phoneOf(c); phone != "" && phone != subject {
			RespondWithError(c, http.StatusForbidden, "Token does not match phone")
			return
		}
		c.Next()
	}
}

// TwilioSignatureMiddleware rejects webhooks whose X-Twilio-Signature does not
// match the request. baseURL must be the public URL Twilio calls.
func TwilioSignatureMiddleware(authToken, baseURL string) gin.HandlerFunc {
	validator := client.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			RespondWithError(c, http.StatusBadRequest, "Malformed form body")
			return
		}
		params := make(map[string]string, len(c.Request.PostForm))
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}

		url := baseURL + c.Request.URL.RequestURI()
		if !validator.Validate(url, params, c.GetHeader("X-Twilio-Signature")) {
			RespondWithError(c, http.StatusForbidden, "Invalid signature")
			return
		}
		c.Next()
	}
}
