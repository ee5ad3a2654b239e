package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/pkg/auth"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

const (
	ipRequestsPerMinute   = 100
	userRequestsPerMinute = 200
)

// Authenticate validates the bearer token, applies per-IP and per-user rate
// limits and stores the caller in the request context.
func Authenticate(validator *auth.JWTValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(ipRequestsPerMinute)
	userLimiter := auth.NewUserRateLimiter(userRequestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if allowed, _ := ipLimiter.Allow(r.Context(), clientIP); !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(ipRequestsPerMinute, "minute"))
				return
			}

			token := auth.ExtractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError(tokenErrorMessage(err)))
				return
			}

			if allowed, _ := userLimiter.Allow(r.Context(), claims.UserID); !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(userRequestsPerMinute, "minute"))
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthenticateForLambda trusts the user headers set by the Lambda entry point
// after API Gateway validated the JWT.
func AuthenticateForLambda(errs *pkgerrors.ErrorHandler) func(next http.Handler) http.Handler {
	userLimiter := auth.NewUserRateLimiter(userRequestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Gateway-Authorized") != "true" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Request not authorized by API Gateway"))
				return
			}
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing user context from API Gateway"))
				return
			}
			if allowed, _ := userLimiter.Allow(r.Context(), userID); !allowed {
				errs.Handle(w, r, pkgerrors.NewRateLimitError(userRequestsPerMinute, "minute"))
				return
			}

			roles := []string{"authenticated"}
			if header := r.Header.Get("X-User-Roles"); header != "" {
				roles = strings.Split(header, ",")
			}
			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
				Roles:  roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch err {
	case auth.ErrExpiredToken:
		return "Token has expired"
	case auth.ErrInvalidSignature:
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
