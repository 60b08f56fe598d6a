package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	// UnknownUser is cached for ids without a profile.
	UnknownUser = "Unknown User"
	// PendingName is shown for senders whose name is not resolved yet.
	PendingName = "Loading..."
	// UnavailableName is shown for senders whose lookup failed. The lookup
	// is retried.
	UnavailableName = "Name unavailable"
)

// ErrNamesUnavailable is returned when ids awaited from another caller's
// lookup are still unresolved because that lookup failed.
var ErrNamesUnavailable = errors.New("names unavailable")

// Resolver maps user ids to display names. Names are cached for the life of
// the resolver, including the UnknownUser fallback. One Resolver is shared by
// every active view.
type Resolver struct {
	fetcher ProfileFetcher
	logger  *zap.Logger

	mu       sync.Mutex
	names    map[string]string
	inflight map[string]chan struct{}
}

// NewResolver creates a resolver backed by fetcher.
func NewResolver(fetcher ProfileFetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher:  fetcher,
		logger:   logger,
		names:    make(map[string]string),
		inflight: make(map[string]chan struct{}),
	}
}

// Name returns the cached name for id.
func (r *Resolver) Name(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[id]
	return name, ok
}

// Unresolved returns the ids of ids that are not cached, without duplicates.
func (r *Resolver) Unresolved(ids []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := r.names[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Resolve looks up the ids that are not cached yet and returns their names.
// Cached ids are left untouched and cost no lookup. Ids another call is
// already looking up are awaited instead of fetched twice. When the lookup
// fails the ids stay unresolved so the next call retries them.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	r.mu.Lock()
	var (
		missing []string
		waitIDs []string
		waits   []chan struct{}
	)
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := r.names[id]; ok {
			continue
		}
		if ch, ok := r.inflight[id]; ok {
			waitIDs = append(waitIDs, id)
			waits = append(waits, ch)
			continue
		}
		missing = append(missing, id)
	}
	done := make(chan struct{})
	for _, id := range missing {
		r.inflight[id] = done
	}
	r.mu.Unlock()

	resolved := make(map[string]string, len(missing)+len(waitIDs))
	var lookupErr error
	if len(missing) > 0 {
		names, err := r.lookup(ctx, missing)

		r.mu.Lock()
		for _, id := range missing {
			delete(r.inflight, id)
		}
		if err == nil {
			for id, name := range names {
				r.names[id] = name
				resolved[id] = name
			}
		}
		r.mu.Unlock()
		close(done)

		if err != nil {
			r.logger.Warn("profile lookup failed", zap.Int("ids", len(missing)), zap.Error(err))
			lookupErr = fmt.Errorf("resolve profiles: %w", err)
		}
	}

	for _, ch := range waits {
		select {
		case <-ch:
		case <-ctx.Done():
			return resolved, ctx.Err()
		}
	}
	if len(waitIDs) > 0 {
		var failed int
		r.mu.Lock()
		for _, id := range waitIDs {
			if name, ok := r.names[id]; ok {
				resolved[id] = name
			} else {
				failed++
			}
		}
		r.mu.Unlock()
		if failed > 0 && lookupErr == nil {
			lookupErr = fmt.Errorf("%w: %d awaited ids", ErrNamesUnavailable, failed)
		}
	}
	return resolved, lookupErr
}

func (r *Resolver) lookup(ctx context.Context, ids []string) (map[string]string, error) {
	profiles, err := r.fetcher.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(ids))
	for _, p := range profiles {
		if p.Name != "" {
			names[p.UserID] = p.Name
		}
	}
	for _, id := range ids {
		if _, ok := names[id]; !ok {
			names[id] = UnknownUser
		}
	}
	return names, nil
}
