package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

type fakeFetcher struct {
	series []model.PrayerTime
	calls  int
}

func (f *fakeFetcher) PrayerTimes(context.Context, provider.Period, string) ([]model.PrayerTime, error) {
	f.calls++
	return f.series, nil
}

type fakeGeocoder struct {
	detail *provider.CityDetail
	err    error
	calls  int
}

func (f *fakeGeocoder) ResolveCity(context.Context, float64, float64) (*provider.CityDetail, error) {
	f.calls++
	return f.detail, f.err
}

type memStamps struct {
	last map[int]time.Time
}

func (m *memStamps) Last(_ context.Context, deviceID int) time.Time { return m.last[deviceID] }
func (m *memStamps) Stamp(_ context.Context, deviceID int, at time.Time) {
	m.last[deviceID] = at
}

func sampleSeries(days int) []model.PrayerTime {
	start, _ := time.Parse("2006-01-02", "2026-08-30")
	series := make([]model.PrayerTime, days)
	for i := range series {
		series[i] = model.PrayerTime{Date: start.AddDate(0, 0, i).Format("2006-01-02"), Fajr: "05:12"}
	}
	return series
}

func divrigi() *provider.CityDetail {
	return &provider.CityDetail{ID: "9858", Name: "Divriği", City: "Sivas", Country: "TÜRKİYE"}
}

func fix() LocationSource {
	return LocationSourceFunc(func(context.Context) (Fix, error) {
		return Fix{Latitude: 39.37, Longitude: 38.12}, nil
	})
}

func online() Conditions {
	return Conditions{Online: true, PermissionGranted: true}
}

type recordingSink struct {
	events []model.Event
}

func (r *recordingSink) Publish(_ int, ev model.Event) { r.events = append(r.events, ev) }

func newTestPoller(store db.Store, geo Geocoder, fetch engine.Fetcher) *Poller {
	eng := engine.New(store, fetch, nil)
	return New(store, geo, eng, nil, &memStamps{last: map[int]time.Time{}})
}

func TestCheckSkipsWhenOffline(t *testing.T) {
	store := db.NewMemStore()
	geo := &fakeGeocoder{detail: divrigi()}
	p := newTestPoller(store, geo, &fakeFetcher{})

	ev, err := p.Check(context.Background(), 1, TriggerForeground, Conditions{Online: false, PermissionGranted: true}, fix())
	if err != nil || ev.Kind != "" {
		t.Fatalf("offline check must be a silent no-op, got %+v %v", ev, err)
	}
	if geo.calls != 0 {
		t.Fatal("no geocode may be attempted while offline")
	}

	state, _ := store.GetLocationState(1)
	if state.GPS != nil || state.Manual != nil {
		t.Fatal("offline check must not mutate the store")
	}
}

func TestCheckSkipsWithoutPermission(t *testing.T) {
	geo := &fakeGeocoder{detail: divrigi()}
	p := newTestPoller(db.NewMemStore(), geo, &fakeFetcher{})

	ev, err := p.Check(context.Background(), 1, TriggerStart, Conditions{Online: true}, fix())
	if err != nil || ev.Kind != "" || geo.calls != 0 {
		t.Fatalf("permission-denied check must be a silent no-op, got %+v %v", ev, err)
	}
}

func TestFirstFixBootstrapsWithoutPrompt(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{series: sampleSeries(30)}
	p := newTestPoller(store, &fakeGeocoder{detail: divrigi()}, fetch)

	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), fix())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventModeSwitched {
		t.Fatalf("first fix must auto-apply without prompting, got %+v", ev)
	}

	state, _ := store.GetLocationState(1)
	if state.Mode != model.ModeGPS || state.GPS == nil || state.GPS.ID != "9858" {
		t.Fatalf("expected gps mode with the resolved place, got %+v", state)
	}
	manual, _ := store.GetSeries(1, model.ModeManual)
	if len(manual) != 0 {
		t.Fatal("manual cache must stay empty after bootstrap")
	}

	saved, _ := store.ListSavedLocations(1)
	if len(saved) != 0 {
		t.Fatal("the poller path must never touch the saved-locations list")
	}
}

func TestMatchingCandidateIsNoAction(t *testing.T) {
	store := db.NewMemStore()
	if err := store.SwitchToGPS(1, model.GPSCityInfo{ID: "9858", Name: "Divriği"}, sampleSeries(30), time.Now()); err != nil {
		t.Fatal(err)
	}
	fetch := &fakeFetcher{}
	p := newTestPoller(store, &fakeGeocoder{detail: divrigi()}, fetch)

	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), fix())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventAlreadyActive || fetch.calls != 0 {
		t.Fatalf("matching candidate must not refetch, got %+v after %d calls", ev, fetch.calls)
	}
}

func TestDifferentCandidatePromptsByDefault(t *testing.T) {
	store := db.NewMemStore()
	if err := store.SwitchToGPS(1, model.GPSCityInfo{ID: "777", Name: "Çankaya"}, sampleSeries(30), time.Now()); err != nil {
		t.Fatal(err)
	}
	fetch := &fakeFetcher{}
	p := newTestPoller(store, &fakeGeocoder{detail: divrigi()}, fetch)

	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), fix())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventLocationChangeDetected || ev.DisplayName != "Divriği" {
		t.Fatalf("expected a prompt carrying the candidate name, got %+v", ev)
	}
	if fetch.calls != 0 {
		t.Fatal("prompting must not fetch or mutate anything")
	}

	state, _ := store.GetLocationState(1)
	if state.GPS.ID != "777" {
		t.Fatal("active location must be unchanged until the prompt is accepted")
	}
}

func TestDifferentCandidateAutoApplies(t *testing.T) {
	store := db.NewMemStore()
	if err := store.SwitchToGPS(1, model.GPSCityInfo{ID: "777", Name: "Çankaya"}, sampleSeries(30), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.SetAutoApply(1, true); err != nil {
		t.Fatal(err)
	}
	fetch := &fakeFetcher{series: sampleSeries(30)}
	p := newTestPoller(store, &fakeGeocoder{detail: divrigi()}, fetch)

	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), fix())
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventModeSwitched {
		t.Fatalf("opted-in change must apply immediately, got %+v", ev)
	}
	if fetch.calls != 1 {
		t.Fatal("applying a different location must fetch fresh data")
	}
	state, _ := store.GetLocationState(1)
	if state.GPS.ID != "9858" {
		t.Fatalf("expected the candidate to become active, got %+v", state.GPS)
	}
}

func TestForegroundDebounce(t *testing.T) {
	store := db.NewMemStore()
	geo := &fakeGeocoder{detail: divrigi()}
	p := newTestPoller(store, geo, &fakeFetcher{series: sampleSeries(30)})

	now := time.Now()
	p.now = func() time.Time { return now }
	p.stamps.Stamp(context.Background(), 1, now.Add(-5*time.Second))

	ev, err := p.Check(context.Background(), 1, TriggerForeground, online(), fix())
	if err != nil || ev.Kind != "" || geo.calls != 0 {
		t.Fatalf("a foreground trigger within the debounce window must be dropped, got %+v", ev)
	}

	// a start trigger is not debounced
	if ev, err = p.Check(context.Background(), 1, TriggerStart, online(), fix()); err != nil || ev.Kind == "" {
		t.Fatalf("start trigger must proceed, got %+v %v", ev, err)
	}
}

func TestGeocodeFailureAbortsSilentlyAndClearsGuard(t *testing.T) {
	store := db.NewMemStore()
	geo := &fakeGeocoder{err: errors.New("no match")}
	p := newTestPoller(store, geo, &fakeFetcher{series: sampleSeries(30)})

	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), fix())
	if err != nil || ev.Kind != "" {
		t.Fatalf("geocode failure must abort silently, got %+v %v", ev, err)
	}
	state, _ := store.GetLocationState(1)
	if state.GPS != nil {
		t.Fatal("aborted cycle must not mutate the store")
	}

	// the in-flight guard must be clear for the next trigger
	geo.err = nil
	geo.detail = divrigi()
	if ev, err = p.Check(context.Background(), 1, TriggerStart, online(), fix()); err != nil || ev.Kind != model.EventModeSwitched {
		t.Fatalf("next trigger must proceed after an aborted cycle, got %+v %v", ev, err)
	}
}

func TestResolvedCandidateIsPublished(t *testing.T) {
	store := db.NewMemStore()
	sink := &recordingSink{}
	eng := engine.New(store, &fakeFetcher{series: sampleSeries(30)}, nil)
	p := New(store, &fakeGeocoder{detail: divrigi()}, eng, sink, &memStamps{last: map[int]time.Time{}})

	if _, err := p.Check(context.Background(), 1, TriggerStart, online(), fix()); err != nil {
		t.Fatal(err)
	}
	if len(sink.events) == 0 || sink.events[0].Kind != model.EventLocationResolved {
		t.Fatalf("a successful reverse geocode must publish location_resolved, got %+v", sink.events)
	}
	if sink.events[0].GPS == nil || sink.events[0].GPS.ID != "9858" {
		t.Fatalf("the resolved event must carry the candidate, got %+v", sink.events[0])
	}

	// a failed geocode publishes nothing
	sink.events = nil
	p = New(store, &fakeGeocoder{err: errors.New("no match")}, eng, sink, &memStamps{last: map[int]time.Time{}})
	if _, err := p.Check(context.Background(), 1, TriggerStart, online(), fix()); err != nil {
		t.Fatal(err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("an aborted cycle must not publish, got %+v", sink.events)
	}
}

func TestLocateFailureAbortsSilently(t *testing.T) {
	store := db.NewMemStore()
	geo := &fakeGeocoder{detail: divrigi()}
	p := newTestPoller(store, geo, &fakeFetcher{})

	broken := LocationSourceFunc(func(context.Context) (Fix, error) {
		return Fix{}, errors.New("gps timeout")
	})
	ev, err := p.Check(context.Background(), 1, TriggerStart, online(), broken)
	if err != nil || ev.Kind != "" || geo.calls != 0 {
		t.Fatalf("locate failure must abort before geocoding, got %+v %v", ev, err)
	}
}
