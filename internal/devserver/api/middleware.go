package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/gorilla/mux"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// requireAuth rejects requests without a valid bearer token with 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		id, err := s.accounts.Authenticate(token)
		if err != nil {
			msg := "Could not validate credentials"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "Token expired"
			}
			writeDetail(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func (s *Server) logRequests() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.log.Debug(r.Context(), "http request",
				"method", r.Method, "path", r.URL.Path,
				"app_source", r.Header.Get(common.AppSourceHeaderName),
				"duration", time.Since(start))
		})
	}
}

// withLatency delays every request; used to exercise client timeouts.
func (s *Server) withLatency() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.latency > 0 {
				select {
				case <-time.After(s.latency):
				case <-r.Context().Done():
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
