package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voicewell/internal/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 100
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func hashPassword(password string) ([]byte, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return nil, fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func checkPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "account store not configured", http.StatusServiceUnavailable)
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" {
		http.Error(w, "username and email are required", http.StatusBadRequest)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.store.CreateUser(req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			http.Error(w, "username already taken", http.StatusConflict)
			return
		}
		log.Error().Err(err).Msg("signup failed")
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	log.Info().Str("username", user.Username).Msg("account created")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "account store not configured", http.StatusServiceUnavailable)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	user, err := s.store.GetUser(req.Username)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		// Identical response for unknown user and wrong password.
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := newSessionToken()
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	sess := storage.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.store.PutSession(sess); err != nil {
		log.Error().Err(err).Msg("session persist failed")
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	s.metrics.SessionsIssued.Inc()
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := bearerToken(r)
	if token != "" && s.store != nil {
		_ = s.store.DeleteSession(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// Websocket clients cannot set headers from browsers; accept a query token.
	return r.URL.Query().Get("token")
}

// withAuth resolves the session for a request. Without a configured store the
// service runs open (single-user mode) and handlers see an anonymous session.
func (s *Server) withAuth(next func(http.ResponseWriter, *http.Request, storage.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			next(w, r, storage.Session{})
			return
		}

		token := bearerToken(r)
		if token == "" {
			s.metrics.RequestsRejected.Inc()
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		sess, err := s.store.GetSession(token)
		if err != nil {
			s.metrics.RequestsRejected.Inc()
			http.Error(w, "invalid or expired session", http.StatusUnauthorized)
			return
		}
		next(w, r, sess)
	}
}
