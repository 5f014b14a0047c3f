// exposes a Store interface that is passed to the engine and API layers
package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ezanapp/minaret/internal/model"
)

type Store interface {
	// device functions
	CreateDevice(deviceID, hashedSecret string, platform *string) (int, error)
	GetDeviceByDeviceID(deviceID string) (*model.Device, error)
	GetDeviceByID(id int) (*model.Device, error)
	ListDeviceIDs() ([]int, error)

	// location state functions
	GetLocationState(deviceID int) (*model.LocationState, error)
	SetAutoApply(deviceID int, on bool) error
	SwitchToManual(deviceID int, sel model.SelectedLocation, series []model.PrayerTime, fetchedAt time.Time) error
	SwitchToGPS(deviceID int, info model.GPSCityInfo, series []model.PrayerTime, fetchedAt time.Time) error

	// prayer time series functions
	GetSeries(deviceID int, mode model.LocationMode) ([]model.PrayerTime, error)
	ReplaceSeries(deviceID int, mode model.LocationMode, series []model.PrayerTime, fetchedAt time.Time) error

	// saved locations functions
	ListSavedLocations(deviceID int) ([]model.SelectedLocation, error)
	ReplaceSavedLocations(deviceID int, list []model.SelectedLocation) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}
