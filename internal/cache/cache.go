// Package cache memoizes diagram inputs in process. Every entry is indexed by
// the topics it depends on so that a write can drop exactly what it affects.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/archmap/archmap/internal/diagram"
	"github.com/archmap/archmap/internal/metrics"
)

// Topic names a slice of relational data a cached value was derived from.
type Topic string

const (
	StreamsAll         Topic = "streams:all"
	ConnectionTypesAll Topic = "connection_types:all"
)

// StreamTopic covers the members and metadata of one stream.
func StreamTopic(name string) Topic {
	return Topic("stream:" + diagram.StreamNodeID(name))
}

// AppTopic covers one app, its functions and its integrations.
func AppTopic(appID int64) Topic {
	return Topic("app:" + strconv.FormatInt(appID, 10))
}

// Kind is the topic without its key, suitable as a metric label.
func (t Topic) Kind() string {
	kind, _, _ := strings.Cut(string(t), ":")
	return kind
}

// Registry is a TTL cache with a topic index. A nil *Registry is valid and
// caches nothing.
type Registry struct {
	items *gocache.Cache
	group singleflight.Group

	mu         sync.Mutex
	index      map[Topic]map[string]struct{}
	generation uint64
}

// New returns a registry whose entries expire after ttl. A non-positive ttl
// disables caching and returns nil.
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		return nil
	}
	return &Registry{
		items: gocache.New(ttl, 2*ttl),
		index: make(map[Topic]map[string]struct{}),
	}
}

func (r *Registry) Enabled() bool {
	return r != nil
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.items.ItemCount()
}

// LoadFunc computes a value and names the topics it was derived from.
type LoadFunc[T any] func(ctx context.Context) (T, []Topic, error)

// Load returns the cached value for key or computes it with load. Concurrent
// misses for the same key share one load. A value is only stored if no
// invalidation happened while it was loading. Cached values are shared and
// must not be mutated by callers.
func Load[T any](ctx context.Context, r *Registry, key string, load LoadFunc[T]) (T, error) {
	var zero T
	if r == nil {
		v, _, err := load(ctx)
		return v, err
	}

	if v, ok := r.items.Get(key); ok {
		if typed, ok := v.(T); ok {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return typed, nil
		}
	}
	metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()

	v, err, _ := r.group.Do(key, func() (any, error) {
		if v, ok := r.items.Get(key); ok {
			return v, nil
		}
		gen := r.currentGeneration()
		val, topics, err := load(ctx)
		if err != nil {
			return nil, err
		}
		r.store(key, val, topics, gen)
		return val, nil
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %q has unexpected type %T", key, v)
	}
	return typed, nil
}

// Invalidate drops every entry indexed under any of topics.
func (r *Registry) Invalidate(topics ...Topic) {
	if r == nil || len(topics) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	for _, t := range topics {
		metrics.CacheInvalidationsTotal.WithLabelValues(t.Kind()).Inc()
		for key := range r.index[t] {
			r.items.Delete(key)
		}
		delete(r.index, t)
	}
}

// Flush drops everything.
func (r *Registry) Flush() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.items.Flush()
	r.index = make(map[Topic]map[string]struct{})
}

func (r *Registry) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *Registry) store(key string, val any, topics []Topic, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return
	}
	r.items.Set(key, val, gocache.DefaultExpiration)
	for _, t := range topics {
		keys, ok := r.index[t]
		if !ok {
			keys = make(map[string]struct{})
			r.index[t] = keys
		}
		keys[key] = struct{}{}
	}
}
