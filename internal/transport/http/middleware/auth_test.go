package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtinfra "github.com/farm-telemetry/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("service-secret")

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestServiceAuth_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	ServiceAuth(testSecret)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"missing or invalid authorization header"}`, rr.Body.String())
}

func TestServiceAuth_BadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	ServiceAuth(testSecret)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceAuth_ExpiredToken(t *testing.T) {
	signed, err := jwtinfra.Mint("farm-telemetry", testSecret, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	ServiceAuth(testSecret)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceAuth_WrongSecret(t *testing.T) {
	signed, err := jwtinfra.Mint("farm-telemetry", []byte("other"), time.Hour, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	ServiceAuth(testSecret)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceAuth_ValidToken_InjectsClaims(t *testing.T) {
	signed, err := jwtinfra.MintFor("farm-telemetry", "portal", testSecret, time.Hour, time.Now())
	require.NoError(t, err)

	var gotClaims *jwtinfra.Claims
	captureHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	ServiceAuth(testSecret)(captureHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "portal", gotClaims.NameID)
}
