package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pynay/LetterChain/internal/types"
)

// DefaultTTL is how long a parsed profile stays cached.
const DefaultTTL = 24 * time.Hour

// Key kinds.
const (
	KindJob    = "job"
	KindResume = "resume"
)

// Key returns the cache key for text of the given kind. Leading and trailing
// whitespace does not change the key.
func Key(kind, text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return "profile:" + kind + ":" + hex.EncodeToString(sum[:])
}

// Stats reports cache activity since construction.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fills   int64 `json:"fills"`
	Shared  int64 `json:"shared"`
	Errors  int64 `json:"errors"`
	Entries int   `json:"entries,omitempty"`
}

// Profiles caches parsed job and resume profiles. Concurrent misses for the
// same text share one fill. Fallback results are returned but not stored.
// Store failures are logged and treated as misses.
type Profiles struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	hits, misses, fills, shared, errors atomic.Int64
}

// NewProfiles creates a profile cache over store. A non-positive ttl selects DefaultTTL.
func NewProfiles(store Store, ttl time.Duration, logger *slog.Logger) *Profiles {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Profiles{store: store, ttl: ttl, logger: logger}
}

// Job returns the cached job profile for text or fills it.
func (p *Profiles) Job(ctx context.Context, text string, fill func(context.Context) (*types.JobProfile, bool, error)) (*types.JobProfile, bool, error) {
	return lookup(ctx, p, Key(KindJob, text), fill)
}

// Resume returns the cached resume profile for text or fills it.
func (p *Profiles) Resume(ctx context.Context, text string, fill func(context.Context) (*types.ResumeProfile, bool, error)) (*types.ResumeProfile, bool, error) {
	return lookup(ctx, p, Key(KindResume, text), fill)
}

// Stats returns a snapshot of the counters.
func (p *Profiles) Stats() Stats {
	s := Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		Fills:  p.fills.Load(),
		Shared: p.shared.Load(),
		Errors: p.errors.Load(),
	}
	if l, ok := p.store.(interface{ Len() int }); ok {
		s.Entries = l.Len()
	}
	return s
}

type filled[T any] struct {
	value    *T
	fallback bool
}

func lookup[T any](ctx context.Context, p *Profiles, key string, fill func(context.Context) (*T, bool, error)) (*T, bool, error) {
	if v, ok := p.get(ctx, key, new(T)); ok {
		p.hits.Add(1)
		return v.(*T), false, nil
	}
	p.misses.Add(1)

	// The fill is shared by every caller waiting on key, so it must not
	// inherit one caller's cancellation. Each caller still stops on its own ctx.
	fillCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		value, fallback, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		p.fills.Add(1)
		if !fallback && value != nil {
			p.put(fillCtx, key, value)
		}
		return filled[T]{value: value, fallback: fallback}, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		p.shared.Add(1)
	}
	if res.Err != nil {
		return nil, false, res.Err
	}

	out := res.Val.(filled[T])
	return copyOf(out.value), out.fallback, nil
}

func (p *Profiles) get(ctx context.Context, key string, dst any) (any, bool) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.errors.Add(1)
		p.logger.Warn("profile cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.errors.Add(1)
		p.logger.Warn("profile cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return dst, true
}

func (p *Profiles) put(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		p.errors.Add(1)
		return
	}
	if err := p.store.Set(ctx, key, raw, p.ttl); err != nil {
		p.errors.Add(1)
		p.logger.Warn("profile cache write failed", "key", key, "error", err)
	}
}

// copyOf gives each shared-fill caller its own value.
func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return v
	}
	return out
}
