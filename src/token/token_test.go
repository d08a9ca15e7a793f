package token

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := NewAuthenticator([]byte("test-key"), map[string]string{"alice": string(hash)}, zerolog.Nop())
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator_EmptyKey(t *testing.T) {
	_, err := NewAuthenticator(nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuthenticator(t)

	tok, err := a.Authenticate("alice", "secret")
	require.NoError(t, err)
	claims, err := a.parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["username"])

	_, err = a.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = a.Authenticate("bob", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetToken(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"valid", `{"username":"alice","password":"secret"}`, http.StatusOK},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"malformed", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.GetToken(rec, httptest.NewRequest(http.MethodPost, "/api/get_token", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"token"`)
			}
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)
	var seenUser any
	protected := a.JwtMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = r.Context().Value(UserKey)
		w.WriteHeader(http.StatusNoContent)
	}))

	valid, err := a.Authenticate("alice", "secret")
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.Authenticate("alice", "secret")
	require.NoError(t, err)
	a.now = time.Now

	other, err := NewAuthenticator([]byte("other-key"), a.users, zerolog.Nop())
	require.NoError(t, err)
	forged, err := other.Authenticate("alice", "secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", valid, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = nil
			req := httptest.NewRequest(http.MethodPost, "/api/resources", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusNoContent {
				assert.Equal(t, "alice", seenUser)
			} else {
				assert.Nil(t, seenUser)
			}
		})
	}
}
