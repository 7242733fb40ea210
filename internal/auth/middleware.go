package auth

import (
	"context"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/aquanexus/credits-cli/internal/model"
)

type contextKey struct{}

// UserFrom extracts the authenticated user from a request context.
func UserFrom(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*model.User)
	return u, ok
}

// Middleware authenticates the session cookie and attaches the user to the
// request context. Requests without a valid session are rejected.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		u, err := s.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			s.ClearCookie(w)
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, u)))
	})
}

// LoginLimiter throttles credential endpoints per client IP.
type LoginLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLoginLimiter allows perMinute attempts per IP with the given burst.
func NewLoginLimiter(perMinute float64, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &LoginLimiter{
		visitors: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

// Allow reports whether the client may attempt a login now.
func (l *LoginLimiter) Allow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	limiter, ok := l.visitors[host]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.visitors[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}

// Wrap guards a handler with the limiter.
func (l *LoginLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.RemoteAddr) {
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
