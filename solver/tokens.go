package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenManager issues single-use solve tokens. A sealed catalog must carry a
// token that has not been consumed yet, so a captured request cannot be
// replayed against the solver.
type TokenManager struct {
	mu     sync.Mutex
	tokens map[string]time.Time // token -> issue time
	now    func() time.Time
}

func NewTokenManager() *TokenManager {
	return &TokenManager{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// GenerateToken issues and records a new random token.
func (tm *TokenManager) GenerateToken() string {
	token := uuid.NewString()

	tm.mu.Lock()
	tm.tokens[token] = tm.now()
	tm.mu.Unlock()

	return token
}

// ValidateAndConsumeToken reports whether token was outstanding, and removes it.
func (tm *TokenManager) ValidateAndConsumeToken(token string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.tokens[token]; !ok {
		return false
	}
	delete(tm.tokens, token)
	return true
}

// Outstanding returns the number of unconsumed tokens.
func (tm *TokenManager) Outstanding() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return len(tm.tokens)
}

// expireOlderThan drops tokens issued more than maxAge ago and returns how many were removed.
func (tm *TokenManager) expireOlderThan(maxAge time.Duration) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	cutoff := tm.now().Add(-maxAge)
	removed := 0
	for token, issued := range tm.tokens {
		if issued.Before(cutoff) {
			delete(tm.tokens, token)
			removed++
		}
	}
	return removed
}

// StartExpirationCleanup expires stale tokens every interval until ctx is done.
func (tm *TokenManager) StartExpirationCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := tm.expireOlderThan(maxAge); n > 0 {
					log.Printf("INFO: Expired %d unused solve tokens", n)
				}
			}
		}
	}()
}
