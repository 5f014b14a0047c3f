package db

import (
	"fmt"
	"sync"
	"time"

	"github.com/ezanapp/minaret/internal/model"
)

// MemStore is an in-memory Store for unit tests and local development.
// It mirrors pgStore semantics, including the all-or-nothing mode switch.
type MemStore struct {
	mu      sync.Mutex
	nextID  int
	devices map[string]*model.Device
	states  map[int]*model.LocationState
	series  map[int]map[model.LocationMode][]model.PrayerTime
	saved   map[int][]model.SelectedLocation
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		nextID:  1,
		devices: make(map[string]*model.Device),
		states:  make(map[int]*model.LocationState),
		series:  make(map[int]map[model.LocationMode][]model.PrayerTime),
		saved:   make(map[int][]model.SelectedLocation),
	}
}

func (s *MemStore) CreateDevice(deviceID, hashedSecret string, platform *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.devices[deviceID]; exists {
		return 0, fmt.Errorf("device %q already exists", deviceID)
	}
	id := s.nextID
	s.nextID++
	now := time.Now()
	s.devices[deviceID] = &model.Device{
		ID: id, DeviceID: deviceID, HashedSecret: hashedSecret,
		Platform: platform, CreatedAt: now, UpdatedAt: now,
	}
	return id, nil
}

func (s *MemStore) GetDeviceByDeviceID(deviceID string) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[deviceID]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, nil
}

func (s *MemStore) GetDeviceByID(id int) (*model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListDeviceIDs() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.devices))
	for _, d := range s.devices {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (s *MemStore) GetLocationState(deviceID int) (*model.LocationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateCopyLocked(deviceID), nil
}

func (s *MemStore) stateCopyLocked(deviceID int) *model.LocationState {
	state, ok := s.states[deviceID]
	if !ok {
		return &model.LocationState{DeviceID: deviceID, Mode: model.ModeGPS}
	}
	copied := *state
	if state.Manual != nil {
		sel := *state.Manual
		copied.Manual = &sel
	}
	if state.GPS != nil {
		info := *state.GPS
		copied.GPS = &info
	}
	return &copied
}

func (s *MemStore) stateLocked(deviceID int) *model.LocationState {
	state, ok := s.states[deviceID]
	if !ok {
		state = &model.LocationState{DeviceID: deviceID, Mode: model.ModeGPS}
		s.states[deviceID] = state
	}
	return state
}

func (s *MemStore) SetAutoApply(deviceID int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateLocked(deviceID).AutoApply = on
	return nil
}

func (s *MemStore) SwitchToManual(deviceID int, sel model.SelectedLocation, series []model.PrayerTime, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(deviceID)
	state.Mode = model.ModeManual
	selCopy := sel
	state.Manual = &selCopy
	stamp := fetchedAt
	state.ManualFetchedAt = &stamp
	s.replaceSeriesLocked(deviceID, model.ModeManual, series)
	state.GPS = nil
	state.GPSFetchedAt = nil
	delete(s.series[deviceID], model.ModeGPS)
	return nil
}

func (s *MemStore) SwitchToGPS(deviceID int, info model.GPSCityInfo, series []model.PrayerTime, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.stateLocked(deviceID)
	state.Mode = model.ModeGPS
	infoCopy := info
	state.GPS = &infoCopy
	stamp := fetchedAt
	state.GPSFetchedAt = &stamp
	s.replaceSeriesLocked(deviceID, model.ModeGPS, series)
	state.Manual = nil
	state.ManualFetchedAt = nil
	delete(s.series[deviceID], model.ModeManual)
	return nil
}

func (s *MemStore) GetSeries(deviceID int, mode model.LocationMode) ([]model.PrayerTime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMode, ok := s.series[deviceID]
	if !ok {
		return nil, nil
	}
	return append([]model.PrayerTime(nil), byMode[mode]...), nil
}

func (s *MemStore) ReplaceSeries(deviceID int, mode model.LocationMode, series []model.PrayerTime, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceSeriesLocked(deviceID, mode, series)
	state := s.stateLocked(deviceID)
	stamp := fetchedAt
	if mode == model.ModeManual {
		state.ManualFetchedAt = &stamp
	} else {
		state.GPSFetchedAt = &stamp
	}
	return nil
}

func (s *MemStore) replaceSeriesLocked(deviceID int, mode model.LocationMode, series []model.PrayerTime) {
	if s.series[deviceID] == nil {
		s.series[deviceID] = make(map[model.LocationMode][]model.PrayerTime)
	}
	s.series[deviceID][mode] = append([]model.PrayerTime(nil), series...)
}

func (s *MemStore) ListSavedLocations(deviceID int) ([]model.SelectedLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SelectedLocation(nil), s.saved[deviceID]...), nil
}

func (s *MemStore) ReplaceSavedLocations(deviceID int, list []model.SelectedLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[deviceID] = append([]model.SelectedLocation(nil), list...)
	return nil
}
