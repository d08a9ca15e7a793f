package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = time.Hour

type contextKey string

// UserKey holds the authenticated username on a request context.
const UserKey contextKey = "user"

var ErrInvalidCredentials = errors.New("invalid username or password")

type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticator issues and checks HS256 tokens for a fixed set of users.
type Authenticator struct {
	signingKey []byte
	users      map[string]string // username -> bcrypt hash
	logger     zerolog.Logger
	now        func() time.Time
}

func NewAuthenticator(signingKey []byte, users map[string]string, logger zerolog.Logger) (*Authenticator, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("signing key cannot be empty")
	}
	return &Authenticator{
		signingKey: signingKey,
		users:      users,
		logger:     logger.With().Str("component", "Authenticator").Logger(),
		now:        time.Now,
	}, nil
}

// Authenticate checks the password and returns a signed token valid for one hour.
func (a *Authenticator) Authenticate(username, password string) (string, error) {
	storedPassword, ok := a.users[username]
	if !ok || !checkPasswordHash(password, storedPassword) {
		a.logger.Warn().Str("user", username).Msg("Authentication failed")
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      a.now().Add(tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	a.logger.Info().Str("user", username).Msg("Authenticated user")
	return tokenString, nil
}

func (a *Authenticator) GetToken(w http.ResponseWriter, r *http.Request) {
	var user User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	tokenString, err := a.Authenticate(user.Username, user.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("Token issue failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": tokenString})
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (a *Authenticator) parse(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *Authenticator) JwtMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}

		claims, err := a.parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			a.logger.Debug().Err(err).Msg("Rejected token")
			http.Error(w, "Forbidden", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, claims["username"])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
