package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

type contextKey string

const roleKey contextKey = "role"

// ConnRole returns the role the gatekeeper assigned to the request.
func ConnRole(ctx context.Context) types.Role {
	if role, ok := ctx.Value(roleKey).(types.Role); ok {
		return role
	}

	return types.RoleGuest
}

func (s *TrackerApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// roleMiddleware runs the gatekeeper classification once per request and
// stores the result on the context. Classification never rejects: an
// unrecognized credential simply yields guest.
func (s *TrackerApp) roleMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := s.creds.ClassifyConnection(r)
		ctx := context.WithValue(r.Context(), roleKey, role)

		next(w, r.WithContext(ctx))
	}
}

// requireUser gates mutating endpoints: guests are read-only.
func (s *TrackerApp) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return s.roleMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if !ConnRole(r.Context()).CanMutate() {
			errResp := NewForbiddenError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	})
}

func (s *TrackerApp) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return s.roleMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if !ConnRole(r.Context()).IsAdmin() {
			errResp := NewForbiddenError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	})
}
