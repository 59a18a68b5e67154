package questions

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

// CachedSource caches question sets per (topic, difficulty, count) with a TTL
// so repeated rooms on a hot topic do not hammer the generator. Concurrent
// misses for the same key collapse into one generator call.
type CachedSource struct {
	source app.QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       app.QuestionSet
	expiresAt time.Time
}

func NewCachedSource(source app.QuestionSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (c *CachedSource) Questions(ctx context.Context, topic string, difficulty domain.Difficulty, count int) (app.QuestionSet, error) {
	key := fmt.Sprintf("%s|%s|%d", topic, difficulty, count)
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.set, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.set, nil
		}
		c.mu.RUnlock()

		set, err := c.source.Questions(ctx, topic, difficulty, count)
		if err != nil {
			return app.QuestionSet{}, err
		}
		// Fallback-padded sets are not cached: the next room should get
		// another shot at the real generator.
		if set.AIGenerated {
			c.mu.Lock()
			c.cache[key] = cachedSet{set: set, expiresAt: now.Add(c.ttlWithJitter())}
			c.mu.Unlock()
		}
		return set, nil
	})
	if err != nil {
		return app.QuestionSet{}, err
	}
	return result.(app.QuestionSet), nil
}

func (c *CachedSource) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
