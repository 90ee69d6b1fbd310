package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Strob0t/customerapi/internal/domain"
)

// defaultMaxClients caps the number of clients tracked at once.
const defaultMaxClients = 100000

// KeyFunc names the client a request is charged to.
type KeyFunc func(*http.Request) string

// RejectFunc writes the response for a throttled request. err is a
// domain.FaultThrottled fault.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithKeyFunc replaces the default RemoteIP client key.
func WithKeyFunc(fn KeyFunc) Option {
	return func(rl *RateLimiter) { rl.key = fn }
}

// WithRejectFunc sets how throttled requests are answered.
func WithRejectFunc(fn RejectFunc) Option {
	return func(rl *RateLimiter) { rl.reject = fn }
}

// WithMaxClients bounds the client table. New clients are refused while it
// is full.
func WithMaxClients(n int) Option {
	return func(rl *RateLimiter) { rl.maxClients = n }
}

// RateLimiter gives every client a token bucket holding up to burst
// requests, refilled at rate per second.
type RateLimiter struct {
	rate       float64
	burst      int
	maxClients int
	key        KeyFunc
	reject     RejectFunc
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*allowance
}

type allowance struct {
	tokens float64
	filled time.Time
}

// verdict is the outcome of charging one request.
type verdict struct {
	allowed   bool
	remaining int
	retryIn   time.Duration // until the next token, when refused
	fullIn    time.Duration // until the bucket is full again
}

// NewRateLimiter limits each client to rate requests per second with bursts
// of up to burst requests.
func NewRateLimiter(rate float64, burst int, opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		rate:       rate,
		burst:      burst,
		maxClients: defaultMaxClients,
		key:        RemoteIP,
		reject:     plainReject,
		now:        time.Now,
		clients:    make(map[string]*allowance),
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Handler charges every request to its client and refuses it once the
// client's bucket is empty.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := rl.key(r)
		v := rl.charge(client)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(v.fullIn).Unix(), 10))

		if v.allowed {
			next.ServeHTTP(w, r)
			return
		}

		retry := wholeSeconds(v.retryIn)
		h.Set("Retry-After", strconv.Itoa(retry))
		slog.WarnContext(r.Context(), "rate limit exceeded", "client", client, "path", r.URL.Path)
		rl.reject(w, r, domain.ThrottledFault(fmt.Sprintf("Retry after %d seconds", retry)))
	})
}

// charge takes one token from client's bucket if it has one.
func (rl *RateLimiter) charge(client string) verdict {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	a, ok := rl.clients[client]
	if !ok {
		if len(rl.clients) >= rl.maxClients {
			return verdict{retryIn: rl.perToken()}
		}
		a = &allowance{tokens: float64(rl.burst), filled: now}
		rl.clients[client] = a
	}

	a.tokens = math.Min(float64(rl.burst), a.tokens+now.Sub(a.filled).Seconds()*rl.rate)
	a.filled = now

	if a.tokens < 1 {
		return verdict{
			retryIn: rl.forTokens(1 - a.tokens),
			fullIn:  rl.forTokens(float64(rl.burst) - a.tokens),
		}
	}
	a.tokens--
	return verdict{
		allowed:   true,
		remaining: int(a.tokens),
		fullIn:    rl.forTokens(float64(rl.burst) - a.tokens),
	}
}

func (rl *RateLimiter) perToken() time.Duration { return rl.forTokens(1) }

func (rl *RateLimiter) forTokens(n float64) time.Duration {
	return time.Duration(n / rl.rate * float64(time.Second))
}

// StartCleanup forgets clients idle for longer than maxIdle, checking every
// interval. The returned func stops it.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.forgetIdle(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) forgetIdle(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for client, a := range rl.clients {
		if a.filled.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RemoteIP keys requests by the host part of RemoteAddr. Proxy headers are
// not trusted.
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func plainReject(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// wholeSeconds rounds d up, never below one second.
func wholeSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
