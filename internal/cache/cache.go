// Package cache holds small in-process caches with expiry, such as the
// edit-access results of spreadsheets the bot has already checked.
package cache

import (
	"context"
	"time"
)

// Cache defines a generic keyed cache.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans a set of caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
}

// NewJanitor returns a janitor cleaning caches every interval.
func NewJanitor(interval time.Duration, caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, interval: interval}
}

// Run cleans until ctx is done and returns the number of entries removed.
func (j *Janitor) Run(ctx context.Context) int {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	removed := 0
	for {
		select {
		case <-ticker.C:
			removed += j.Sweep()
		case <-ctx.Done():
			return removed
		}
	}
}

// Sweep cleans every cache once.
func (j *Janitor) Sweep() int {
	n := 0
	for _, c := range j.caches {
		n += c.CleanExpired()
	}
	return n
}
