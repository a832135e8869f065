package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"carrental/internal/logger"
)

// Listener is told which keys were invalidated, after the store dropped them.
type Listener interface {
	Invalidated(keys []string)
}

// QueryCache memoises query results by key. Concurrent loads of one key share a
// single call and mutations invalidate keys so the next read refetches.
type QueryCache struct {
	store Store
	ttl   time.Duration
	log   logger.ILogger
	group singleflight.Group

	mu        sync.RWMutex
	listeners []Listener

	// genMu orders stores of loaded values against invalidations of the same key.
	genMu sync.Mutex
	gens  map[string]uint64
}

func NewQueryCache(store Store, ttl time.Duration, log logger.ILogger) *QueryCache {
	return &QueryCache{store: store, ttl: ttl, log: log, gens: make(map[string]uint64)}
}

func (q *QueryCache) Subscribe(l Listener) {
	q.mu.Lock()
	q.listeners = append(q.listeners, l)
	q.mu.Unlock()
}

// Fetch returns the cached value for key or loads, stores and returns it.
// Store failures are logged and the load result is still returned. A load that
// was overtaken by Invalidate returns its result but does not store it.
func Fetch[T any](ctx context.Context, q *QueryCache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok, err := q.store.Get(ctx, key); err != nil {
		q.log.Warning("cache get failed", logger.String("key", key), logger.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		q.log.Warning("cache entry unreadable", logger.String("key", key))
	}

	res, err, _ := q.group.Do(key, func() (interface{}, error) {
		gen := q.generation(key)
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(v); err == nil {
			q.storeIfCurrent(ctx, key, gen, raw)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func (q *QueryCache) generation(key string) uint64 {
	q.genMu.Lock()
	defer q.genMu.Unlock()
	return q.gens[key]
}

func (q *QueryCache) storeIfCurrent(ctx context.Context, key string, gen uint64, raw []byte) {
	q.genMu.Lock()
	defer q.genMu.Unlock()
	if q.gens[key] != gen {
		q.log.Debug("cache load overtaken by invalidation", logger.String("key", key))
		return
	}
	if err := q.store.Set(ctx, key, raw, q.ttl); err != nil {
		q.log.Warning("cache set failed", logger.String("key", key), logger.Error(err))
	}
}

// Invalidate drops keys and notifies listeners. Loads of these keys still in
// flight will not store their results.
func (q *QueryCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	q.genMu.Lock()
	for _, k := range keys {
		q.gens[k]++
		q.group.Forget(k)
	}
	err := q.store.Delete(ctx, keys...)
	q.genMu.Unlock()
	if err != nil {
		q.log.Error("cache invalidate failed", logger.Strings("keys", keys), logger.Error(err))
	}

	q.mu.RLock()
	listeners := append([]Listener(nil), q.listeners...)
	q.mu.RUnlock()
	for _, l := range listeners {
		l.Invalidated(keys)
	}
}

// Remember stores a short-lived scalar outside the query namespace.
func (q *QueryCache) Remember(ctx context.Context, key, value string, ttl time.Duration) error {
	return q.store.Set(ctx, key, []byte(value), ttl)
}

// Consume returns a remembered value once and deletes it. Of two concurrent
// callers only one sees the value.
func (q *QueryCache) Consume(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := q.store.Take(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(raw), true, nil
}
