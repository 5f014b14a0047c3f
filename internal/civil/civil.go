// Package civil computes "today" in the active location's civil calendar,
// which may differ from the device's zone.
package civil

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/redis"
)

const DateLayout = "2006-01-02"

// ZoneLookup resolves an IANA zone name for a place tuple. It is an
// external geocoding collaborator; results are cached indefinitely.
type ZoneLookup interface {
	Zone(ctx context.Context, country, city, region string) (string, error)
}

// ZoneCache stores resolved zone names per place tuple.
type ZoneCache interface {
	Get(ctx context.Context, country, city, region string) string
	Set(ctx context.Context, country, city, region, zone string)
}

// RedisZoneCache keeps zone names in redis with no expiry.
type RedisZoneCache struct{}

func (RedisZoneCache) Get(ctx context.Context, country, city, region string) string {
	return redis.GetTimezone(ctx, country, city, region)
}

func (RedisZoneCache) Set(ctx context.Context, country, city, region, zone string) {
	redis.SetTimezone(ctx, country, city, region, zone)
}

// Resolver formats "now" in a location's zone, falling back to the local
// civil date when no zone has been resolved.
type Resolver struct {
	lookup ZoneLookup
	cache  ZoneCache
	now    func() time.Time
}

func NewResolver(lookup ZoneLookup, cache ZoneCache) *Resolver {
	return &Resolver{lookup: lookup, cache: cache, now: time.Now}
}

// NewResolverAt pins the clock; used by tests.
func NewResolverAt(lookup ZoneLookup, cache ZoneCache, now func() time.Time) *Resolver {
	return &Resolver{lookup: lookup, cache: cache, now: now}
}

// Today returns the YYYY-MM-DD civil date for the given place tuple.
func (r *Resolver) Today(ctx context.Context, country, city, region string) string {
	zone := r.cache.Get(ctx, country, city, region)
	if zone == "" && r.lookup != nil {
		resolved, err := r.lookup.Zone(ctx, country, city, region)
		if err != nil {
			log.Debug().Err(err).Str("city", city).Msg("timezone lookup failed, using local date")
		} else if resolved != "" {
			zone = resolved
			r.cache.Set(ctx, country, city, region, zone)
		}
	}
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			return r.now().In(loc).Format(DateLayout)
		}
		log.Warn().Str("zone", zone).Msg("cached zone name did not load")
	}
	return r.now().Format(DateLayout)
}
