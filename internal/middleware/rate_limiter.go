package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	count int
	end   time.Time
}

// RateLimiter cuenta pedidos por IP en ventanas fijas.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu  sync.Mutex
	ips map[string]*window
}

func NewRateLimiter(limit int, w time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: w, now: time.Now, ips: make(map[string]*window)}
}

func (l *RateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	// limpieza de ventanas vencidas
	if len(l.ips) > 10000 {
		for k, e := range l.ips {
			if now.After(e.end) {
				delete(l.ips, k)
			}
		}
	}
	e, ok := l.ips[ip]
	if !ok || now.After(e.end) {
		e = &window{end: now.Add(l.window)}
		l.ips[ip] = e
	}
	e.count++
	return e.count <= l.limit
}

func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Demasiados intentos. Intente nuevamente en un momento."})
			return
		}
		c.Next()
	}
}
