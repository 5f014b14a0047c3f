package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Rdb *redis.Client

func InitRedis(redisAddress string, redisUsername string, redisPassword string) {
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// GetTimezone returns the cached IANA zone name for a place tuple, or ""
// when nothing has been resolved yet. Cache misses and read errors look
// the same to callers; a resolution will simply be attempted again.
func GetTimezone(ctx context.Context, country, city, region string) string {
	zone, err := Rdb.Get(ctx, timezoneKey(country, city, region)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Msg("failed to read timezone cache")
		}
		return ""
	}
	return zone
}

// SetTimezone caches a resolved zone name with no expiry; the zone of a
// fixed place does not change over the app's lifetime.
func SetTimezone(ctx context.Context, country, city, region, zone string) {
	if err := Rdb.Set(ctx, timezoneKey(country, city, region), zone, 0).Err(); err != nil {
		log.Error().Err(err).Msg("failed to cache timezone")
	}
}

// LastCheck returns when the change-detection poller last ran for a device.
func LastCheck(ctx context.Context, deviceID int) time.Time {
	raw, err := Rdb.Get(ctx, checkKey(deviceID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Error().Err(err).Msg("failed to read last check stamp")
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func StampCheck(ctx context.Context, deviceID int, at time.Time) {
	if err := Rdb.Set(ctx, checkKey(deviceID), at.Format(time.RFC3339Nano), 24*time.Hour).Err(); err != nil {
		log.Error().Err(err).Msg("failed to stamp location check")
	}
}

func timezoneKey(country, city, region string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return fmt.Sprintf("tz:%s:%s:%s", norm(country), norm(city), norm(region))
}

func checkKey(deviceID int) string {
	return fmt.Sprintf("loccheck:%d", deviceID)
}
