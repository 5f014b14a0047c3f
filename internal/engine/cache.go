package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/civil"
	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

// MonthlyWindow is the size of the provider's rolling window.
const MonthlyWindow = 30

// manualMaxAge is the legacy manual-mode staleness cutoff.
const manualMaxAge = 29 * 24 * time.Hour

// CacheManager decides fetch-or-reuse per mode and computes the current
// day's record against the location's civil calendar.
type CacheManager struct {
	store  db.Store
	fetch  Fetcher
	civil  *civil.Resolver
	events EventSink
	now    func() time.Time
}

func NewCacheManager(store db.Store, fetch Fetcher, resolver *civil.Resolver, events EventSink) *CacheManager {
	if events == nil {
		events = NopSink{}
	}
	return &CacheManager{store: store, fetch: fetch, civil: resolver, events: events, now: time.Now}
}

// Stale reports whether the cached series needs a refetch.
//
// GPS mode uses the explicit coverage check: a row for today must exist
// with at least MonthlyWindow rows at-or-after it. Manual mode keeps the
// coarser fetch-age cutoff the picker flow has always used.
func (m *CacheManager) Stale(state *model.LocationState, series []model.PrayerTime, today string) bool {
	if state.Mode == model.ModeManual {
		return state.ManualFetchedAt == nil || m.now().Sub(*state.ManualFetchedAt) >= manualMaxAge
	}
	idx := indexOfDay(series, today)
	if idx < 0 {
		return true
	}
	return len(series)-idx < MonthlyWindow
}

// EnsureFresh returns the active mode's series, refetching when stale or
// forced. On fetch failure the existing cache is kept and returned.
func (m *CacheManager) EnsureFresh(ctx context.Context, deviceID int, force bool) ([]model.PrayerTime, *model.PrayerTime, error) {
	state, err := m.store.GetLocationState(deviceID)
	if err != nil {
		return nil, nil, err
	}
	placeID, err := activePlaceID(state)
	if err != nil {
		return nil, nil, err
	}

	today := m.today(ctx, state)
	series, err := m.store.GetSeries(deviceID, state.Mode)
	if err != nil {
		return nil, nil, err
	}

	if force || m.Stale(state, series, today) {
		fresh, fetchErr := m.fetch.PrayerTimes(ctx, provider.PeriodMonthly, placeID)
		if fetchErr != nil {
			log.Error().Err(fetchErr).Int("device", deviceID).Str("mode", string(state.Mode)).
				Msg("prayer time refetch failed, keeping cached series")
			m.events.Publish(deviceID, model.Event{Kind: model.EventFetchFailed, Mode: state.Mode, Err: fetchErr.Error()})
			if len(series) == 0 {
				return nil, nil, fmt.Errorf("refresh prayer times: %w", fetchErr)
			}
		} else {
			if err := m.store.ReplaceSeries(deviceID, state.Mode, fresh, m.now()); err != nil {
				return nil, nil, fmt.Errorf("persist refreshed series: %w", err)
			}
			series = fresh
		}
	}

	return series, CurrentDay(series, today), nil
}

// Today returns only the current day's record for the active mode, or nil
// when the cache does not cover today. Callers must treat nil as
// stale/unknown, never guess.
func (m *CacheManager) Today(ctx context.Context, deviceID int) (*model.PrayerTime, error) {
	state, err := m.store.GetLocationState(deviceID)
	if err != nil {
		return nil, err
	}
	if _, err := activePlaceID(state); err != nil {
		return nil, err
	}
	series, err := m.store.GetSeries(deviceID, state.Mode)
	if err != nil {
		return nil, err
	}
	return CurrentDay(series, m.today(ctx, state)), nil
}

// CurrentDay scans for the row matching today's civil date.
func CurrentDay(series []model.PrayerTime, today string) *model.PrayerTime {
	for i := range series {
		if series[i].Date == today {
			return &series[i]
		}
	}
	return nil
}

func (m *CacheManager) today(ctx context.Context, state *model.LocationState) string {
	country, city, region := placeTuple(state)
	return m.civil.Today(ctx, country, city, region)
}

func activePlaceID(state *model.LocationState) (string, error) {
	if state.Mode == model.ModeManual {
		if state.Manual == nil || state.Manual.District == nil {
			return "", ErrNoActiveLocation
		}
		return strconv.Itoa(state.Manual.District.ID), nil
	}
	if state.GPS == nil || state.GPS.ID == "" {
		return "", ErrNoActiveLocation
	}
	return state.GPS.ID, nil
}

func placeTuple(state *model.LocationState) (country, city, region string) {
	if state.Mode == model.ModeManual && state.Manual != nil {
		sel := state.Manual
		if sel.Country != nil {
			country = sel.Country.Name
		}
		if sel.City != nil {
			city = sel.City.Name
		}
		if sel.District != nil {
			region = sel.District.Name
		}
		return
	}
	if state.GPS != nil {
		return state.GPS.Country, state.GPS.City, state.GPS.Name
	}
	return
}

func indexOfDay(series []model.PrayerTime, day string) int {
	for i := range series {
		if series[i].Date == day {
			return i
		}
	}
	return -1
}
