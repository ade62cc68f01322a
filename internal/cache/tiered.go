package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Mirror is the shared second tier. *Redis implements it.
type Mirror interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// Stamped values carry the time their data was fetched upstream. Their expiry counts
// from that time rather than from when they were stored.
type Stamped interface {
	Fetched() time.Time
}

// mirrored is the mirror's envelope. StoredAt is the fetch time, so a backfill keeps
// the original deadline.
type mirrored[T any] struct {
	V        T         `json:"v"`
	StoredAt time.Time `json:"storedAt"`
}

// Tiered reads memory, then the mirror, then loads. Concurrent misses on one key share a load.
// Every entry expires TTL after its data was fetched, whichever tier it is read from.
type Tiered struct {
	Mem    *Memory
	Mirror Mirror // optional
	TTL    time.Duration
	Prefix string

	group singleflight.Group
	now   func() time.Time
}

func NewTiered(mem *Memory, mirror Mirror, ttl time.Duration, prefix string) *Tiered {
	if mem == nil {
		mem = NewMemory()
	}
	return &Tiered{Mem: mem, Mirror: mirror, TTL: ttl, Prefix: prefix, now: time.Now}
}

func (t *Tiered) clock() time.Time {
	if t.now == nil {
		return time.Now()
	}
	return t.now()
}

// remaining is how long a value fetched at at may still be served.
func (t *Tiered) remaining(at time.Time) time.Duration {
	left := t.TTL - t.clock().Sub(at)
	if left > t.TTL {
		left = t.TTL
	}
	return left
}

func stampOf(v any, fallback time.Time) time.Time {
	if s, ok := v.(Stamped); ok {
		if at := s.Fetched(); !at.IsZero() {
			return at
		}
	}
	return fallback
}

// PageKey is <prefix>jobs:page:<slug>:<sha256 of the canonical query>.
func (t *Tiered) PageKey(slug, canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return t.companyPrefix(slug) + hex.EncodeToString(sum[:])
}

func (t *Tiered) companyPrefix(slug string) string {
	return fmt.Sprintf("%sjobs:page:%s:", t.Prefix, slug)
}

// Invalidate drops every cached page of a company from both tiers.
func (t *Tiered) Invalidate(ctx context.Context, slug string) (int, error) {
	p := t.companyPrefix(slug)
	n := t.Mem.DeletePrefix(p)
	if t.Mirror != nil {
		if err := t.Mirror.DeleteByPattern(ctx, p+"*"); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (t *Tiered) Len() int { return t.Mem.Len() }

type loadResult[T any] struct {
	v      T
	cached bool
}

// Fetch returns the value under key, loading it on a miss. cached reports whether the
// value came from either tier. Failed loads are not stored. The load runs detached from
// ctx, so a caller that gives up does not fail the others waiting on the same key.
func Fetch[T any](ctx context.Context, t *Tiered, key string, load func(ctx context.Context) (T, error)) (v T, cached bool, err error) {
	if got, ok := lookup[T](ctx, t, key); ok {
		return got, true, nil
	}

	ch := t.group.DoChan(key, func() (any, error) {
		if got, ok := t.Mem.Get(key); ok {
			if tv, ok := got.(T); ok {
				return loadResult[T]{v: tv, cached: true}, nil
			}
		}
		detached := context.WithoutCancel(ctx)
		fresh, err := load(detached)
		if err != nil {
			return nil, err
		}
		at := stampOf(fresh, t.clock())
		left := t.remaining(at)
		if left <= 0 {
			log.WithField("key", key).Debug("loaded value already past ttl, not cached")
			return loadResult[T]{v: fresh}, nil
		}
		t.Mem.Set(key, fresh, left)
		if t.Mirror != nil {
			env := mirrored[T]{V: fresh, StoredAt: at}
			if err := t.Mirror.SetJSON(detached, key, env, left); err != nil {
				log.WithField("key", key).Debugf("mirror set failed: %v", err)
			}
		}
		return loadResult[T]{v: fresh}, nil
	})

	select {
	case <-ctx.Done():
		return v, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, false, res.Err
		}
		lr := res.Val.(loadResult[T])
		return lr.v, lr.cached, nil
	}
}

func lookup[T any](ctx context.Context, t *Tiered, key string) (T, bool) {
	var zero T
	if got, ok := t.Mem.Get(key); ok {
		if tv, ok := got.(T); ok {
			return tv, true
		}
	}
	if t.Mirror == nil {
		return zero, false
	}
	var env mirrored[T]
	hit, err := t.Mirror.GetJSON(ctx, key, &env)
	if err != nil {
		log.WithField("key", key).Debugf("mirror get failed: %v", err)
		return zero, false
	}
	if !hit || env.StoredAt.IsZero() {
		return zero, false
	}
	left := t.remaining(env.StoredAt)
	if left <= 0 {
		return zero, false
	}
	t.Mem.Set(key, env.V, left)
	return env.V, true
}
