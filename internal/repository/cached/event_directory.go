// Package cached wraps read-only directories with a short-lived in-memory cache.
package cached

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"schoolevents/internal/domain"
)

// eventDirectory caches event metadata by id. Cached ConfirmedCount values may lag
// by up to the TTL; admission never relies on them because TryReserve reads the
// authoritative count.
type eventDirectory struct {
	next  domain.EventDirectory
	cache *gocache.Cache
}

// NewEventDirectory returns an EventDirectory that serves repeat lookups from memory
// for ttl. Misses are not cached so newly created events become visible immediately.
func NewEventDirectory(next domain.EventDirectory, ttl time.Duration) domain.EventDirectory {
	return &eventDirectory{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (d *eventDirectory) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if v, found := d.cache.Get(id); found {
		if ev, ok := v.(domain.Event); ok {
			return &ev, nil
		}
	}
	ev, err := d.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.SetDefault(id, *ev)
	return ev, nil
}
