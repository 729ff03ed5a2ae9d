package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"edumind-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuizBackend is the persistent store a cache sits in front of.
type QuizBackend interface {
	Save(ctx context.Context, rec domain.QuizRecord) (string, error)
	Load(ctx context.Context, id string) (domain.QuizRecord, error)
	Update(ctx context.Context, id string, rec domain.QuizRecord) error
	List(ctx context.Context) ([]domain.StoredQuiz, error)
}

// QuizCache caches quiz records with TTL to avoid repeated store reads.
// Writes go straight to the backend and drop the cached copy. A fill that
// read the backend before an invalidation is not stored.
type QuizCache struct {
	backend QuizBackend
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
	gen   map[string]uint64
}

type cachedQuiz struct {
	rec       domain.QuizRecord
	expiresAt time.Time
}

func NewQuizCache(backend QuizBackend, ttl time.Duration) *QuizCache {
	return &QuizCache{
		backend: backend,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
		gen:     make(map[string]uint64),
	}
}

func (c *QuizCache) Load(ctx context.Context, id string) (domain.QuizRecord, error) {
	if rec, ok := c.lookup(id); ok {
		return rec, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		if rec, ok := c.lookup(id); ok {
			return rec, nil
		}

		c.mu.RLock()
		gen := c.gen[id]
		c.mu.RUnlock()

		rec, err := c.backend.Load(ctx, id)
		if err != nil {
			return domain.QuizRecord{}, err
		}

		c.mu.Lock()
		if c.gen[id] == gen {
			c.cache[id] = cachedQuiz{
				rec:       cloneRecord(rec),
				expiresAt: c.clock().Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return rec, nil
	})
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return cloneRecord(result.(domain.QuizRecord)), nil
}

func (c *QuizCache) Save(ctx context.Context, rec domain.QuizRecord) (string, error) {
	return c.backend.Save(ctx, rec)
}

func (c *QuizCache) Update(ctx context.Context, id string, rec domain.QuizRecord) error {
	if err := c.backend.Update(ctx, id, rec); err != nil {
		return err
	}
	c.Invalidate(id)
	return nil
}

// List is not cached; dashboards need the backend's modification times.
func (c *QuizCache) List(ctx context.Context) ([]domain.StoredQuiz, error) {
	return c.backend.List(ctx)
}

func (c *QuizCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.cache, id)
	c.gen[id]++
	c.mu.Unlock()
}

func (c *QuizCache) lookup(id string) (domain.QuizRecord, bool) {
	now := c.clock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.cache[id]; ok && entry.expiresAt.After(now) {
		return cloneRecord(entry.rec), true
	}
	return domain.QuizRecord{}, false
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// cloneRecord copies the question slice so callers can mutate answers
// without touching the cached value.
func cloneRecord(rec domain.QuizRecord) domain.QuizRecord {
	rec.Questions = append([]domain.Question(nil), rec.Questions...)
	return rec
}
