package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRealIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", realIP(req))
}

func TestRealIP_XRealIP_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", realIP(req))
}

func TestRealIP_RemoteAddr_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	assert.Equal(t, "192.168.1.1", realIP(req))
}

func TestRealIP_XForwardedFor_TakesPrecedenceOverXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "1.1.1.1", realIP(req))
}

func TestLimit_RejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 2)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/negotiate", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/v1/negotiate", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.2")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	assert.Equal(t, http.StatusOK, rr.Code)
}
