package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	str       string
	hash      map[string]string
	list      []string
	set       map[string]struct{}
	zset      map[string]float64
	expiresAt time.Time // zero means no expiry
}

// MemoryBackend is an in-process Backend used in tests and as a degraded
// fallback when no redis is configured. A single mutex serializes all
// mutations, which also gives appends the per-key atomicity the session
// store relies on.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]*entry

	// Now is the clock used for expiry checks; tests may override it.
	Now func() time.Time
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]*entry),
		Now:  time.Now,
	}
}

// get returns the live entry for key, discarding it if expired.
// Caller must hold mu.
func (b *MemoryBackend) get(key string) *entry {
	e, ok := b.data[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && b.Now().After(e.expiresAt) {
		delete(b.data, key)
		return nil
	}
	return e
}

func (b *MemoryBackend) ensure(key string) *entry {
	e := b.get(key)
	if e == nil {
		e = &entry{}
		b.data[key] = e
	}
	return e
}

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return "", false, nil
	}
	return e.str, true, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &entry{str: value}
	if ttl > 0 {
		e.expiresAt = b.Now().Add(ttl)
	}
	b.data[key] = e
	return nil
}

func (b *MemoryBackend) Del(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		delete(b.data, k)
	}
	return nil
}

func (b *MemoryBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e := b.get(key); e != nil {
		e.expiresAt = b.Now().Add(ttl)
	}
	return nil
}

func (b *MemoryBackend) HSet(ctx context.Context, key string, fields map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

func (b *MemoryBackend) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string)
	if e := b.get(key); e != nil {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

func (b *MemoryBackend) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.ensure(key)
	if e.hash == nil {
		e.hash = make(map[string]string)
	}
	cur := parseInt64(e.hash[field])
	cur += delta
	e.hash[field] = formatInt64(cur)
	return cur, nil
}

func (b *MemoryBackend) RPush(ctx context.Context, key string, values ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.ensure(key)
	e.list = append(e.list, values...)
	return nil
}

func (b *MemoryBackend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil, nil
	}
	n := int64(len(e.list))
	start, stop = normalizeRange(start, stop, n)
	if start > stop {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	out = append(out, e.list[start:stop+1]...)
	return out, nil
}

func (b *MemoryBackend) LTrim(ctx context.Context, key string, start, stop int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil
	}
	n := int64(len(e.list))
	start, stop = normalizeRange(start, stop, n)
	if start > stop {
		e.list = nil
		return nil
	}
	e.list = e.list[start : stop+1]
	return nil
}

func (b *MemoryBackend) LLen(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.list)), nil
}

func (b *MemoryBackend) SAdd(ctx context.Context, key string, members ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.ensure(key)
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (b *MemoryBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil, nil
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	return out, nil
}

func (b *MemoryBackend) SRem(ctx context.Context, key string, members ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil
	}
	for _, m := range members {
		delete(e.set, m)
	}
	return nil
}

func (b *MemoryBackend) ZAdd(ctx context.Context, key string, score float64, member string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.ensure(key)
	if e.zset == nil {
		e.zset = make(map[string]float64)
	}
	e.zset[member] = score
	return nil
}

func (b *MemoryBackend) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return nil
	}
	for m, score := range e.zset {
		if score >= min && score <= max {
			delete(e.zset, m)
		}
	}
	return nil
}

func (b *MemoryBackend) ZCard(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.get(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.zset)), nil
}

func (b *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)

// normalizeRange converts redis-style negative indexes into slice bounds.
func normalizeRange(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
