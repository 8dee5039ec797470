package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func mintToken(t *testing.T, secret []byte, sub, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func protectedEndpoint(t *testing.T, captured *Identity) http.Handler {
	t.Helper()
	return Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		require.True(t, ok, "handler reached without identity in context")
		*captured = ident
		w.WriteHeader(http.StatusNoContent)
	}))
}

func doRequest(handler http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	var got Identity
	handler := protectedEndpoint(t, &got)

	token := mintToken(t, testSecret, userID.String(), "patient", time.Now().Add(time.Hour))
	rec := doRequest(handler, "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, RolePatient, got.Role)
}

func TestMiddleware_Rejections(t *testing.T) {
	var got Identity
	handler := protectedEndpoint(t, &got)
	validSub := uuid.New().String()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"malformed token", "Bearer not.a.jwt"},
		{
			"wrong secret",
			"Bearer " + mintToken(t, []byte("other-secret"), validSub, "patient", time.Now().Add(time.Hour)),
		},
		{
			"expired",
			"Bearer " + mintToken(t, testSecret, validSub, "patient", time.Now().Add(-time.Hour)),
		},
		{
			"non-uuid subject",
			"Bearer " + mintToken(t, testSecret, "user-42", "patient", time.Now().Add(time.Hour)),
		},
		{
			"unknown role",
			"Bearer " + mintToken(t, testSecret, validSub, "superuser", time.Now().Add(time.Hour)),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(handler, tc.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized","details":"`+detailFor(tc.name)+`"}`, rec.Body.String())
		})
	}
}

func detailFor(name string) string {
	switch name {
	case "missing header":
		return "missing authorization header"
	case "not bearer":
		return "invalid authorization format"
	case "non-uuid subject":
		return "invalid subject claim"
	case "unknown role":
		return "invalid role claim"
	default:
		return "invalid token"
	}
}

func TestMiddleware_AlgorithmConfusionRejected(t *testing.T) {
	var got Identity
	handler := protectedEndpoint(t, &got)

	// A token signed with "none" must not be accepted even if its payload is
	// otherwise well formed.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	rec := doRequest(handler, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"patient", "professional", "admin"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "Patient", "doctor", "root"} {
		_, err := ParseRole(invalid)
		assert.Error(t, err, invalid)
	}
}
