package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client address. A bucket holds
// Requests tokens and refills at Requests per Window.
type RateLimiter struct {
	requests int
	window   time.Duration
	message  string
	exempt   map[string]bool

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter allowing requests per window for each
// client. Requests below 1 disables limiting. Requests to exempt paths are
// never counted.
func NewRateLimiter(requests int, window time.Duration, message string, exempt ...string) *RateLimiter {
	l := &RateLimiter{
		requests: requests,
		window:   window,
		message:  message,
		exempt:   make(map[string]bool, len(exempt)),
		clients:  make(map[string]*client),
		now:      time.Now,
	}
	for _, p := range exempt {
		l.exempt[p] = true
	}
	return l
}

// Allow reports whether key may make another request, and if not, how long
// until it may.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l.requests < 1 || l.window <= 0 {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		every := rate.Every(l.window / time.Duration(l.requests))
		c = &client{limiter: rate.NewLimiter(every, l.requests)}
		l.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects over-limit clients with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.exempt[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		ok, wait := l.Allow(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
