package localcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"planos/internal/interpreter"
	mw "planos/internal/middleware"
)

const (
	ttl        = 5 * time.Minute
	maxEntries = 256
)

func init() {
	mw.Register(New())
}

type cacheEntry struct {
	response  string
	timestamp time.Time
}

// LocalCache replays the model's answer when the same utterance is sent again
// against an unchanged week within five minutes. The key covers the week
// dates, the existing events, the language and the current hour, so any
// change to the calendar misses.
type LocalCache struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
	now   func() time.Time
}

func New() *LocalCache {
	return &LocalCache{cache: make(map[string]cacheEntry), now: time.Now}
}

func (l *LocalCache) ID() string { return "local_cache" }

// Priority runs after the local answerers and the token budget.
func (l *LocalCache) Priority() int { return 80 }

func (l *LocalCache) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Context == nil {
		return false
	}
	_, ok := e.Context[interpreter.ContextKeyWeek]
	return ok
}

func (l *LocalCache) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.UserText == "" {
		return mw.Decision{}, nil
	}
	key, err := cacheKey(e)
	if err != nil {
		return mw.Decision{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	switch e.Name {
	case mw.EventBeforeLLMRequest:
		entry, ok := l.cache[key]
		if !ok {
			return mw.Decision{}, nil
		}
		if now.Sub(entry.timestamp) >= ttl {
			delete(l.cache, key)
			return mw.Decision{}, nil
		}
		reply := entry.response
		return mw.Decision{
			Cancel:      true,
			ReplaceText: &reply,
			Reason:      "served from local cache",
		}, nil
	case mw.EventAfterLLMResponse:
		if e.LLMText == "" {
			return mw.Decision{}, nil
		}
		if len(l.cache) >= maxEntries {
			l.evict(now)
		}
		l.cache[key] = cacheEntry{response: e.LLMText, timestamp: now}
	}
	return mw.Decision{}, nil
}

// evict drops expired entries, then the oldest one if the cache is still full.
func (l *LocalCache) evict(now time.Time) {
	var oldest string
	var oldestAt time.Time
	for k, v := range l.cache {
		if now.Sub(v.timestamp) >= ttl {
			delete(l.cache, k)
			continue
		}
		if oldest == "" || v.timestamp.Before(oldestAt) {
			oldest, oldestAt = k, v.timestamp
		}
	}
	if len(l.cache) >= maxEntries {
		delete(l.cache, oldest)
	}
}

func cacheKey(e *mw.Event) (string, error) {
	var hour string
	if now, ok := e.Context[interpreter.ContextKeyNow].(time.Time); ok {
		hour = now.Format("2006-01-02T15")
	}
	b, err := json.Marshal([]any{
		e.UserText,
		e.Context[interpreter.ContextKeyWeek],
		e.Context[interpreter.ContextKeyExisting],
		e.Context[interpreter.ContextKeyLanguage],
		hour,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
