package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"edumind-service/internal/domain"
	"edumind-service/internal/infra/memory"
	"edumind-service/internal/logging"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizCache caches quiz records in Redis as JSON strings and falls back to
// the backend on a miss. Updates write through; a miss only fills an absent
// key so it never replaces a newer record.
//
//	SET quiz:{id} <record json> EX <ttl>
//	SET quiz:{id} <record json> EX <ttl> NX   (fill after a miss)
type QuizCache struct {
	client  *redis.Client
	backend memory.QuizBackend
	ttl     time.Duration
	log     *logging.Logger
	sf      singleflight.Group
	rnd     *rand.Rand
	rndMu   sync.Mutex
}

func NewQuizCache(client *redis.Client, backend memory.QuizBackend, ttl time.Duration, log *logging.Logger) *QuizCache {
	if log == nil {
		log = logging.Nop()
	}
	return &QuizCache{
		client:  client,
		backend: backend,
		ttl:     ttl,
		log:     log,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Load(ctx context.Context, id string) (domain.QuizRecord, error) {
	if rec, ok := c.cached(ctx, id); ok {
		return rec, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if rec, ok := c.cached(ctx, id); ok {
			return rec, nil
		}

		rec, err := c.backend.Load(ctx, id)
		if err != nil {
			return domain.QuizRecord{}, err
		}

		data, err := json.Marshal(rec)
		if err == nil {
			if err := c.client.SetNX(ctx, c.key(id), data, c.ttlWithJitter()).Err(); err != nil {
				c.log.Warn("quiz cache write failed", "quiz_id", id, "error", err)
			}
		}
		return rec, nil
	})
	if err != nil {
		return domain.QuizRecord{}, err
	}
	return result.(domain.QuizRecord), nil
}

func (c *QuizCache) Save(ctx context.Context, rec domain.QuizRecord) (string, error) {
	return c.backend.Save(ctx, rec)
}

func (c *QuizCache) Update(ctx context.Context, id string, rec domain.QuizRecord) error {
	if err := c.backend.Update(ctx, id, rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err == nil {
		err = c.client.Set(ctx, c.key(id), data, c.ttlWithJitter()).Err()
	}
	if err != nil {
		c.log.Warn("quiz cache write-through failed", "quiz_id", id, "error", err)
		c.Invalidate(ctx, id)
	}
	return nil
}

func (c *QuizCache) List(ctx context.Context) ([]domain.StoredQuiz, error) {
	return c.backend.List(ctx)
}

func (c *QuizCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.log.Warn("quiz cache invalidation failed", "quiz_id", id, "error", err)
	}
}

func (c *QuizCache) cached(ctx context.Context, id string) (domain.QuizRecord, bool) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("quiz cache read failed", "quiz_id", id, "error", err)
		}
		return domain.QuizRecord{}, false
	}
	var rec domain.QuizRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.QuizRecord{}, false
	}
	// ID is not part of the JSON document.
	rec.ID = id
	return rec, true
}

func (c *QuizCache) key(id string) string {
	return "quiz:" + id
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
