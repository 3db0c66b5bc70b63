package delivery

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// statusWriter remembers the status code and stamps the X-Process-Time
// header just before headers are flushed.
type statusWriter struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		if !w.start.IsZero() {
			w.Header().Set("X-Process-Time", fmt.Sprintf("%.6f", time.Since(w.start).Seconds()))
		}
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

// ProcessTime adds the X-Process-Time response header and logs every
// completed request.
func ProcessTime(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, start: time.Now()}
			next.ServeHTTP(sw, r)
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.Status(),
				"duration", time.Since(sw.start))
		})
	}
}

// Recoverer converts panics into a generic 500 response so a single bad
// request cannot take the server down.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "path", r.URL.Path, "panic", rec)
					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "An unexpected error occurred",
						"type":  "internal_error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter is a per-client sliding window limiter keyed by remote IP.
// Health endpoints are exempt so probes never get throttled.
type RateLimiter struct {
	mu        sync.Mutex
	perMinute int
	window    time.Duration
	history   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		window:    time.Minute,
		history:   make(map[string][]time.Time),
		now:       time.Now,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":       "Too many requests. Please try again later.",
				"retry_after": "60 seconds",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	// Once per window, drop keys whose clients have gone idle so the map
	// does not grow with every distinct IP ever seen.
	if now.Sub(rl.lastSweep) >= rl.window {
		for k, times := range rl.history {
			if len(times) == 0 || !times[len(times)-1].After(cutoff) {
				delete(rl.history, k)
			}
		}
		rl.lastSweep = now
	}

	recent := rl.history[key][:0]
	for _, t := range rl.history[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= rl.perMinute {
		rl.history[key] = recent
		return false
	}
	rl.history[key] = append(recent, now)
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
