// Package ratelimit provides a per-client pre-routing hook that
// enforces a token-bucket rate limit before a request reaches the
// router.
package ratelimit

import (
	"net"
	"sync"
	"time"

	"github.com/ryanbekhen/kilat"
	"golang.org/x/time/rate"
)

// Config holds the rate-limit settings: requests per duration, burst
// size, and how long an idle client entry lives.
type Config struct {
	Requests  int           // Max requests per duration
	Burst     int           // Burst size
	Duration  time.Duration // Duration window (e.g., 1 minute)
	ExpiresIn time.Duration // Visitor entry expiration
}

// DefaultConfig allows one request per second, burst 5, with visitor
// entries expiring after an hour of silence.
func DefaultConfig() Config {
	return Config{
		Requests:  1,
		Burst:     5,
		Duration:  time.Second,
		ExpiresIn: time.Hour,
	}
}

// visitor pairs a limiter with its last recorded activity.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet is the shared per-IP limiter table.
type limiterSet struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	cfg      Config
}

func newLimiterSet(cfg Config) *limiterSet {
	return &limiterSet{
		visitors: make(map[string]*visitor),
		cfg:      cfg,
	}
}

// get returns the limiter for ip, creating it on first sight.
func (ls *limiterSet) get(ip string) *rate.Limiter {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	v, ok := ls.visitors[ip]
	if !ok {
		every := rate.Every(ls.cfg.Duration / time.Duration(ls.cfg.Requests))
		v = &visitor{limiter: rate.NewLimiter(every, ls.cfg.Burst)}
		ls.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup removes stale visitors once a minute.
func (ls *limiterSet) cleanup() {
	for {
		time.Sleep(time.Minute)
		ls.mu.Lock()
		for ip, v := range ls.visitors {
			if time.Since(v.lastSeen) > ls.cfg.ExpiresIn {
				delete(ls.visitors, ip)
			}
		}
		ls.mu.Unlock()
	}
}

// New returns a pre-routing hook that answers 429 and drops the
// request once a client exceeds its budget.
func New(config ...Config) kilat.PreRoutingHook {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 1
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Second
	}
	ls := newLimiterSet(cfg)
	go ls.cleanup()

	return func(req *kilat.Request, res *kilat.ResponseHandle, meta *kilat.ConnectionMeta) kilat.PreRoutingAction {
		if ls.get(clientIP(meta)).Allow() {
			return kilat.PreRoutingProceed
		}
		_ = res.JSON(kilat.StatusOf(kilat.StatusTooManyRequests), nil, map[string]interface{}{
			"message": "rate limit reached",
		})
		return kilat.PreRoutingDrop
	}
}

// clientIP extracts the bare IP from the connection's peer address.
func clientIP(meta *kilat.ConnectionMeta) string {
	addr := meta.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
