package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

type fakeFetcher struct {
	series    []model.PrayerTime
	err       error
	calls     int
	lastPlace string
}

func (f *fakeFetcher) PrayerTimes(_ context.Context, _ provider.Period, placeID string) ([]model.PrayerTime, error) {
	f.calls++
	f.lastPlace = placeID
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

type recordingSink struct {
	events []model.Event
}

func (r *recordingSink) Publish(_ int, ev model.Event) { r.events = append(r.events, ev) }

func selection(districtID int, districtName string) model.SelectedLocation {
	return model.SelectedLocation{
		Country:  &model.PlaceItem{ID: 2, Code: "TR", Name: "TÜRKİYE"},
		City:     &model.PlaceItem{ID: 58, Name: "Sivas"},
		District: &model.PlaceItem{ID: districtID, Name: districtName},
	}
}

func sampleSeries(start string, days int) []model.PrayerTime {
	t, _ := time.Parse("2006-01-02", start)
	series := make([]model.PrayerTime, days)
	for i := range series {
		series[i] = model.PrayerTime{
			Date: t.AddDate(0, 0, i).Format("2006-01-02"),
			Fajr: "05:12", Sun: "06:40", Dhuhr: "13:05",
			Asr: "16:41", Maghrib: "19:20", Isha: "20:42",
		}
	}
	return series
}

func TestSelectManualSameReselectionSkipsFetch(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{}
	eng := New(store, fetch, nil)

	seed := sampleSeries("2026-08-30", 30)
	if err := store.SwitchToManual(1, selection(9858, "Divriği"), seed, time.Now()); err != nil {
		t.Fatal(err)
	}

	ev, err := eng.SelectManual(context.Background(), 1, selection(9858, "Divriği"))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventAlreadyActive {
		t.Fatalf("expected already_active, got %s", ev.Kind)
	}
	if fetch.calls != 0 {
		t.Fatalf("reselecting the active district must not hit the network, got %d calls", fetch.calls)
	}

	series, _ := store.GetSeries(1, model.ModeManual)
	if len(series) != len(seed) {
		t.Fatal("cached series must be left untouched")
	}
}

func TestGPSToManualSwitchClearsGPSCache(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{series: sampleSeries("2026-08-30", 30)}
	eng := New(store, fetch, nil)

	if err := store.SwitchToGPS(1, model.GPSCityInfo{ID: "777", Name: "Çankaya", City: "Ankara", Country: "TÜRKİYE"},
		sampleSeries("2026-08-01", 30), time.Now()); err != nil {
		t.Fatal(err)
	}

	ev, err := eng.SelectManual(context.Background(), 1, selection(9858, "Divriği"))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventModeSwitched || ev.Mode != model.ModeManual {
		t.Fatalf("expected a manual mode switch, got %+v", ev)
	}

	state, _ := store.GetLocationState(1)
	if state.Mode != model.ModeManual || state.GPS != nil || state.GPSFetchedAt != nil {
		t.Fatalf("gps side must be fully cleared, got %+v", state)
	}

	gpsSeries, _ := store.GetSeries(1, model.ModeGPS)
	manualSeries, _ := store.GetSeries(1, model.ModeManual)
	if len(gpsSeries) != 0 || len(manualSeries) == 0 {
		t.Fatalf("exactly one mode's series may be populated: gps=%d manual=%d", len(gpsSeries), len(manualSeries))
	}
}

func TestSelectManualMatchingGPSPlaceShortCircuits(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{}
	eng := New(store, fetch, nil)

	if err := store.SwitchToGPS(1, model.GPSCityInfo{ID: "9858", Name: "Divriği", City: "Sivas", Country: "TÜRKİYE"},
		sampleSeries("2026-08-30", 30), time.Now()); err != nil {
		t.Fatal(err)
	}

	ev, err := eng.SelectManual(context.Background(), 1, selection(9858, "Divriği"))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventAlreadyActive || fetch.calls != 0 {
		t.Fatalf("selection matching the active gps place must no-op, got %+v after %d calls", ev, fetch.calls)
	}

	state, _ := store.GetLocationState(1)
	if state.Mode != model.ModeGPS {
		t.Fatal("short-circuit must not switch modes")
	}
}

func TestSelectManualFetchFailureLeavesStoreUntouched(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{err: errors.New("boom")}
	sink := &recordingSink{}
	eng := New(store, fetch, sink)

	before, _ := store.GetLocationState(1)
	if _, err := eng.SelectManual(context.Background(), 1, selection(9858, "Divriği")); err == nil {
		t.Fatal("expected an error when the fetch fails")
	}

	after, _ := store.GetLocationState(1)
	if after.Mode != before.Mode || after.Manual != nil {
		t.Fatalf("failed fetch must not mutate the store, got %+v", after)
	}
	if len(sink.events) == 0 || sink.events[0].Kind != model.EventFetchFailed {
		t.Fatalf("expected a fetch_failed event, got %+v", sink.events)
	}
}

func TestSelectManualIncomplete(t *testing.T) {
	eng := New(db.NewMemStore(), &fakeFetcher{}, nil)
	sel := selection(1, "x")
	sel.District = nil
	if _, err := eng.SelectManual(context.Background(), 1, sel); !errors.Is(err, ErrIncompleteSelection) {
		t.Fatalf("expected ErrIncompleteSelection, got %v", err)
	}
}

func TestSelectManualRemembersLocation(t *testing.T) {
	store := db.NewMemStore()
	eng := New(store, &fakeFetcher{series: sampleSeries("2026-08-30", 30)}, nil)

	if _, err := eng.SelectManual(context.Background(), 1, selection(9858, "Divriği")); err != nil {
		t.Fatal(err)
	}
	list, _ := store.ListSavedLocations(1)
	if len(list) != 1 || list[0].District.ID != 9858 {
		t.Fatalf("completed selection must land in the saved list, got %+v", list)
	}

	// selecting another district appends, reselecting does not duplicate
	if _, err := eng.SelectManual(context.Background(), 1, selection(9859, "Zara")); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.SelectManual(context.Background(), 1, selection(9859, "Zara")); err != nil {
		t.Fatal(err)
	}
	list, _ = store.ListSavedLocations(1)
	if len(list) != 2 {
		t.Fatalf("expected 2 saved locations, got %d", len(list))
	}
}

func TestSavedLocationsCap(t *testing.T) {
	store := db.NewMemStore()
	eng := New(store, &fakeFetcher{}, nil)

	for i := 0; i < MaxSavedLocations; i++ {
		if err := eng.AddSavedLocation(1, selection(100+i, fmt.Sprintf("district-%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	err := eng.AddSavedLocation(1, selection(999, "overflow"))
	if !errors.Is(err, ErrSavedListFull) {
		t.Fatalf("expected ErrSavedListFull, got %v", err)
	}

	// duplicates are accepted silently and do not grow the list
	if err := eng.AddSavedLocation(1, selection(100, "district-0")); err != nil {
		t.Fatal(err)
	}
	list, _ := store.ListSavedLocations(1)
	if len(list) != MaxSavedLocations {
		t.Fatalf("expected %d entries, got %d", MaxSavedLocations, len(list))
	}
}

func TestRemoveActiveSavedLocationReselectsPrimary(t *testing.T) {
	store := db.NewMemStore()
	fetch := &fakeFetcher{series: sampleSeries("2026-08-30", 30)}
	eng := New(store, fetch, nil)

	primary := selection(100, "Merkez")
	other := selection(200, "Divriği")
	if err := eng.AddSavedLocation(1, primary); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.SelectManual(context.Background(), 1, other); err != nil {
		t.Fatal(err)
	}

	ev, err := eng.RemoveSavedLocation(context.Background(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventModeSwitched {
		t.Fatalf("removing the active entry must re-select the primary, got %+v", ev)
	}
	state, _ := store.GetLocationState(1)
	if state.Manual == nil || state.Manual.District.ID != 100 {
		t.Fatalf("expected primary to become active, got %+v", state.Manual)
	}
}

func TestPromoteSavedLocation(t *testing.T) {
	store := db.NewMemStore()
	eng := New(store, &fakeFetcher{}, nil)
	for i := 0; i < 3; i++ {
		if err := eng.AddSavedLocation(1, selection(100+i, fmt.Sprintf("d%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := eng.PromoteSavedLocation(1, 2); err != nil {
		t.Fatal(err)
	}
	list, _ := store.ListSavedLocations(1)
	if list[0].District.ID != 102 || len(list) != 3 {
		t.Fatalf("unexpected order after promote: %+v", list)
	}
}
