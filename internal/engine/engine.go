// Package engine is the single source of truth for which location is
// active and by what method, and for the cached prayer-time series that
// goes with it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

// MaxSavedLocations bounds the shortcut list.
const MaxSavedLocations = 10

var (
	ErrIncompleteSelection = errors.New("manual selection is incomplete")
	ErrSavedListFull       = errors.New("saved locations list is full")
	ErrNoActiveLocation    = errors.New("no active location")
)

// Fetcher is the slice of the provider session the engine needs.
type Fetcher interface {
	PrayerTimes(ctx context.Context, period provider.Period, placeID string) ([]model.PrayerTime, error)
}

// EventSink receives tagged engine outcomes; the widget bridge and any
// presentation layer subscribe here instead of threading callbacks.
type EventSink interface {
	Publish(deviceID int, ev model.Event)
}

// NopSink drops events.
type NopSink struct{}

func (NopSink) Publish(int, model.Event) {}

type Engine struct {
	store  db.Store
	fetch  Fetcher
	events EventSink
	now    func() time.Time
}

func New(store db.Store, fetch Fetcher, events EventSink) *Engine {
	if events == nil {
		events = NopSink{}
	}
	return &Engine{store: store, fetch: fetch, events: events, now: time.Now}
}

// SelectManual runs the manual picker flow: same-location short-circuit
// against the state captured at flow start, otherwise fetch fresh and
// switch mode transactionally. Completed selections also land in the
// saved-locations list.
func (e *Engine) SelectManual(ctx context.Context, deviceID int, sel model.SelectedLocation) (model.Event, error) {
	if !sel.Complete() {
		return model.Event{}, ErrIncompleteSelection
	}

	// snapshot once; a concurrent background update must not change the
	// comparison base mid-flow
	state, err := e.store.GetLocationState(deviceID)
	if err != nil {
		return model.Event{}, err
	}

	ref := RefFromSelected(sel)
	if state.Manual != nil && SameLocation(ref, RefFromSelected(*state.Manual)) {
		log.Info().Int("device", deviceID).Str("place", sel.DisplayName()).Msg("manual selection already active")
		return model.Event{Kind: model.EventAlreadyActive, Mode: model.ModeManual, DisplayName: sel.DisplayName()}, nil
	}
	if state.GPS != nil && SameLocation(ref, RefFromGPS(*state.GPS)) {
		log.Info().Int("device", deviceID).Str("place", sel.DisplayName()).Msg("selection matches active gps place")
		return model.Event{Kind: model.EventAlreadyActive, Mode: model.ModeGPS, DisplayName: sel.DisplayName()}, nil
	}

	series, err := e.fetch.PrayerTimes(ctx, provider.PeriodMonthly, strconv.Itoa(sel.District.ID))
	if err != nil {
		e.events.Publish(deviceID, model.Event{Kind: model.EventFetchFailed, Mode: model.ModeManual, Err: err.Error()})
		return model.Event{}, fmt.Errorf("fetch series for manual selection: %w", err)
	}

	if err := e.store.SwitchToManual(deviceID, sel, series, e.now()); err != nil {
		return model.Event{}, fmt.Errorf("switch to manual: %w", err)
	}
	if err := e.rememberLocation(deviceID, sel); err != nil {
		log.Error().Err(err).Int("device", deviceID).Msg("failed to update saved locations")
	}

	ev := model.Event{Kind: model.EventModeSwitched, Mode: model.ModeManual, DisplayName: sel.DisplayName()}
	e.events.Publish(deviceID, ev)
	return ev, nil
}

// SelectGPS applies a GPS- or map-derived place. The saved-locations list
// is never touched on this path.
func (e *Engine) SelectGPS(ctx context.Context, deviceID int, info model.GPSCityInfo) (model.Event, error) {
	if info.ID == "" {
		return model.Event{}, errors.New("gps place has no provider id")
	}

	state, err := e.store.GetLocationState(deviceID)
	if err != nil {
		return model.Event{}, err
	}

	ref := RefFromGPS(info)
	if state.GPS != nil && SameLocation(ref, RefFromGPS(*state.GPS)) {
		return model.Event{Kind: model.EventAlreadyActive, Mode: model.ModeGPS, DisplayName: info.DisplayName()}, nil
	}
	if state.Manual != nil && SameLocation(ref, RefFromSelected(*state.Manual)) {
		return model.Event{Kind: model.EventAlreadyActive, Mode: model.ModeManual, DisplayName: info.DisplayName()}, nil
	}

	series, err := e.fetch.PrayerTimes(ctx, provider.PeriodMonthly, info.ID)
	if err != nil {
		e.events.Publish(deviceID, model.Event{Kind: model.EventFetchFailed, Mode: model.ModeGPS, Err: err.Error()})
		return model.Event{}, fmt.Errorf("fetch series for gps place: %w", err)
	}

	if err := e.store.SwitchToGPS(deviceID, info, series, e.now()); err != nil {
		return model.Event{}, fmt.Errorf("switch to gps: %w", err)
	}

	ev := model.Event{Kind: model.EventModeSwitched, Mode: model.ModeGPS, DisplayName: info.DisplayName(), GPS: &info}
	e.events.Publish(deviceID, ev)
	return ev, nil
}

// rememberLocation upserts a completed selection into the shortcut list:
// dedup by the identity comparator, capped, existing entry kept in place.
func (e *Engine) rememberLocation(deviceID int, sel model.SelectedLocation) error {
	list, err := e.store.ListSavedLocations(deviceID)
	if err != nil {
		return err
	}
	ref := RefFromSelected(sel)
	for _, existing := range list {
		if SameLocation(ref, RefFromSelected(existing)) {
			return nil
		}
	}
	if len(list) >= MaxSavedLocations {
		return ErrSavedListFull
	}
	return e.store.ReplaceSavedLocations(deviceID, append(list, sel))
}

// AddSavedLocation bookmarks a place without activating it.
func (e *Engine) AddSavedLocation(deviceID int, sel model.SelectedLocation) error {
	if !sel.Complete() {
		return ErrIncompleteSelection
	}
	return e.rememberLocation(deviceID, sel)
}

// RemoveSavedLocation deletes by index. Removing the entry that backs the
// active manual location re-selects the primary (index 0) afterwards.
func (e *Engine) RemoveSavedLocation(ctx context.Context, deviceID int, index int) (model.Event, error) {
	list, err := e.store.ListSavedLocations(deviceID)
	if err != nil {
		return model.Event{}, err
	}
	if index < 0 || index >= len(list) {
		return model.Event{}, fmt.Errorf("saved location index %d out of range", index)
	}

	removed := list[index]
	list = append(list[:index:index], list[index+1:]...)
	if err := e.store.ReplaceSavedLocations(deviceID, list); err != nil {
		return model.Event{}, err
	}

	state, err := e.store.GetLocationState(deviceID)
	if err != nil {
		return model.Event{}, err
	}
	if state.Mode == model.ModeManual && state.Manual != nil &&
		SameLocation(RefFromSelected(removed), RefFromSelected(*state.Manual)) && len(list) > 0 {
		return e.SelectManual(ctx, deviceID, list[0])
	}
	return model.Event{}, nil
}

// PromoteSavedLocation moves an entry to index 0, making it primary.
func (e *Engine) PromoteSavedLocation(deviceID int, index int) error {
	list, err := e.store.ListSavedLocations(deviceID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(list) {
		return fmt.Errorf("saved location index %d out of range", index)
	}
	if index == 0 {
		return nil
	}
	promoted := list[index]
	rest := append(list[:index:index], list[index+1:]...)
	return e.store.ReplaceSavedLocations(deviceID, append([]model.SelectedLocation{promoted}, rest...))
}

func (e *Engine) SetAutoApply(deviceID int, on bool) error {
	return e.store.SetAutoApply(deviceID, on)
}
