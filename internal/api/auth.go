package api

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/protocol"
)

// authMiddleware attaches the caller's principal. Requests without an
// Authorization header run as the anonymous role; unknown tokens are 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var principal auth.Principal
		token, err := auth.ExtractBearerToken(r)
		switch {
		case errors.Is(err, auth.ErrNoCredentials):
			principal = auth.Anonymous(s.config.AnonymousRole)
		case err != nil:
			protocol.WriteError(w, fault.Unauthorized("%v", err))
			return
		default:
			p, ok := auth.Authenticate(token, s.config.Tokens)
			if !ok {
				protocol.WriteError(w, fault.Unauthorized("invalid bearer token"))
				return
			}
			principal = p
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// requirePermission guards operational routes. Unlike invocations these are
// read-only, so the request method plays no part.
func (s *Server) requirePermission(p auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ := auth.PrincipalFromContext(r.Context())
			if !principal.Role.Grants(p) {
				protocol.WriteError(w, fault.Forbidden("role %s lacks permission %s", principal.Role.Name(), p))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(limiterKey(r)) {
			w.Header().Set("Retry-After", "1")
			protocol.WriteError(w, fault.RateLimited())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterKey buckets named principals by name and anonymous callers by
// remote address.
func limiterKey(r *http.Request) string {
	principal, _ := auth.PrincipalFromContext(r.Context())
	if !principal.IsAnonymous() {
		return "principal:" + principal.Name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "anonymous:" + host
}

const maxLimiters = 10000

type limiterSet struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *limiterSet) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxLimiters {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
