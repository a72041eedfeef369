package http

import (
	"sync"

	"golang.org/x/time/rate"
)

// AgentLimiter hands out one token bucket per calling agent. Unidentified
// callers share per-address buckets.
type AgentLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perAgent rate.Limit
	burst    int
}

// NewAgentLimiter builds a limiter granting requestsPerSecond with the given
// burst to each distinct key.
func NewAgentLimiter(requestsPerSecond float64, burst int) *AgentLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &AgentLimiter{
		limiters: make(map[string]*rate.Limiter),
		perAgent: rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether the keyed caller may proceed right now.
func (l *AgentLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	return l.limiterFor(key).Allow()
}

func (l *AgentLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.perAgent, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}
