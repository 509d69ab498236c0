package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/domain"
)

type ctxKey int

const userKey ctxKey = iota

// currentUser returns the authenticated user set by authenticate.
func currentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// requestLogger logs one line per request through logrus.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields["request_id"] = id
		}
		entry := s.log.WithFields(fields)
		switch {
		case ww.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case ww.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	})
}

// authenticate resolves the bearer token to a user. Browsers cannot set
// headers on websocket handshakes, so a token query parameter is accepted too.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			s.respondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}
		userID, err := s.tokens.Parse(token)
		if err != nil {
			s.respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		user, err := s.users.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			s.log.WithError(err).WithField("user_id", userID).Error("load authenticated user")
			s.respondWithError(w, http.StatusInternalServerError, "Something went wrong, please try again later")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
