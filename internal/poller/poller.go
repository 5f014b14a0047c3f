// Package poller re-samples the device's physical location and decides
// whether an observed change should be surfaced or applied automatically.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
	"github.com/ezanapp/minaret/internal/redis"
)

const (
	// foreground triggers inside this window are dropped
	debounceInterval = 10 * time.Second
	locateTimeout    = 15 * time.Second
)

// Trigger says why a check fired.
type Trigger string

const (
	TriggerStart      Trigger = "start"
	TriggerForeground Trigger = "foreground"
)

// Fix is one fresh device coordinate; cached fixes must not be reused.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// LocationSource produces a zero-max-age fix. The HTTP trigger wraps the
// coordinate the shell sampled; tests inject their own.
type LocationSource interface {
	Locate(ctx context.Context) (Fix, error)
}

// LocationSourceFunc adapts a function to LocationSource.
type LocationSourceFunc func(ctx context.Context) (Fix, error)

func (f LocationSourceFunc) Locate(ctx context.Context) (Fix, error) { return f(ctx) }

// Geocoder is the slice of the provider session the poller needs.
type Geocoder interface {
	ResolveCity(ctx context.Context, latitude, longitude float64) (*provider.CityDetail, error)
}

// CheckStamps records when a device was last checked, surviving restarts.
type CheckStamps interface {
	Last(ctx context.Context, deviceID int) time.Time
	Stamp(ctx context.Context, deviceID int, at time.Time)
}

// RedisStamps keeps check stamps in redis.
type RedisStamps struct{}

func (RedisStamps) Last(ctx context.Context, deviceID int) time.Time {
	return redis.LastCheck(ctx, deviceID)
}

func (RedisStamps) Stamp(ctx context.Context, deviceID int, at time.Time) {
	redis.StampCheck(ctx, deviceID, at)
}

// Conditions carries what only the device shell can know.
type Conditions struct {
	Online            bool
	PermissionGranted bool
}

type Poller struct {
	store    db.Store
	geocoder Geocoder
	engine   *engine.Engine
	events   engine.EventSink
	stamps   CheckStamps
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[int]bool
}

func New(store db.Store, geocoder Geocoder, eng *engine.Engine, events engine.EventSink, stamps CheckStamps) *Poller {
	if events == nil {
		events = engine.NopSink{}
	}
	return &Poller{
		store:    store,
		geocoder: geocoder,
		engine:   eng,
		events:   events,
		stamps:   stamps,
		now:      time.Now,
		inFlight: make(map[int]bool),
	}
}

// Check runs one change-detection cycle for a device. Overlapping checks
// are dropped, not queued; every early exit clears the guard so the next
// trigger can proceed. Errors inside the cycle are logged, never
// surfaced, and never mutate the store.
func (p *Poller) Check(ctx context.Context, deviceID int, trigger Trigger, cond Conditions, src LocationSource) (model.Event, error) {
	if !cond.Online || !cond.PermissionGranted {
		log.Debug().Int("device", deviceID).Bool("online", cond.Online).
			Bool("permission", cond.PermissionGranted).Msg("location check skipped")
		return model.Event{}, nil
	}

	if trigger == TriggerForeground {
		if last := p.stamps.Last(ctx, deviceID); !last.IsZero() && p.now().Sub(last) < debounceInterval {
			return model.Event{}, nil
		}
	}

	p.mu.Lock()
	if p.inFlight[deviceID] {
		p.mu.Unlock()
		return model.Event{}, nil
	}
	p.inFlight[deviceID] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, deviceID)
		p.mu.Unlock()
	}()

	p.stamps.Stamp(ctx, deviceID, p.now())

	cycle := uuid.NewString()
	logger := log.With().Int("device", deviceID).Str("cycle", cycle).Logger()

	locateCtx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()
	fix, err := src.Locate(locateCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("location fix failed, aborting cycle")
		return model.Event{}, nil
	}

	detail, err := p.geocoder.ResolveCity(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		logger.Warn().Err(err).Msg("reverse geocode failed, aborting cycle")
		return model.Event{}, nil
	}
	candidate := detail.GPSInfo()
	p.events.Publish(deviceID, model.Event{
		Kind:        model.EventLocationResolved,
		Mode:        model.ModeGPS,
		DisplayName: candidate.DisplayName(),
		GPS:         &candidate,
	})

	// always re-read from the store; in-memory state may be stale
	state, err := p.store.GetLocationState(deviceID)
	if err != nil {
		logger.Warn().Err(err).Msg("state load failed, aborting cycle")
		return model.Event{}, nil
	}

	activeRef, hasActive := activeRef(state)
	if !hasActive {
		if state.Mode == model.ModeGPS {
			// first-run bootstrap, not a change: apply without prompting
			logger.Info().Str("place", candidate.DisplayName()).Msg("no active location, applying first gps fix")
			return p.apply(ctx, deviceID, candidate, logger)
		}
		return model.Event{}, nil
	}

	if engine.SameLocation(engine.RefFromGPS(candidate), activeRef) {
		return model.Event{Kind: model.EventAlreadyActive, Mode: state.Mode, DisplayName: candidate.DisplayName()}, nil
	}

	if state.AutoApply {
		logger.Info().Str("place", candidate.DisplayName()).Msg("location changed, auto-applying")
		return p.apply(ctx, deviceID, candidate, logger)
	}

	logger.Info().Str("place", candidate.DisplayName()).Msg("location change detected, prompting")
	return model.Event{
		Kind:        model.EventLocationChangeDetected,
		Mode:        model.ModeGPS,
		DisplayName: candidate.DisplayName(),
		GPS:         &candidate,
	}, nil
}

// Apply accepts a previously surfaced candidate (the prompt-accept path).
func (p *Poller) Apply(ctx context.Context, deviceID int, candidate model.GPSCityInfo) (model.Event, error) {
	return p.engine.SelectGPS(ctx, deviceID, candidate)
}

func (p *Poller) apply(ctx context.Context, deviceID int, candidate model.GPSCityInfo, logger zerolog.Logger) (model.Event, error) {
	ev, err := p.engine.SelectGPS(ctx, deviceID, candidate)
	if err != nil {
		logger.Warn().Err(err).Msg("applying candidate failed, aborting cycle")
		return model.Event{}, nil
	}
	return ev, nil
}

func activeRef(state *model.LocationState) (engine.PlaceRef, bool) {
	if state.Mode == model.ModeManual {
		if state.Manual == nil {
			return engine.PlaceRef{}, false
		}
		return engine.RefFromSelected(*state.Manual), true
	}
	if state.GPS == nil {
		return engine.PlaceRef{}, false
	}
	return engine.RefFromGPS(*state.GPS), true
}
