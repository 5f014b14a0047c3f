package model

import "time"

// Device is one registered app install. All engine state is keyed by it.
type Device struct {
	ID           int       `db:"id"`
	DeviceID     string    `db:"device_id"`
	HashedSecret string    `db:"hashed_secret"`
	Platform     *string   `db:"platform"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// LocationState is the per-device engine state row.
type LocationState struct {
	DeviceID        int          `db:"device_id"`
	Mode            LocationMode `db:"mode"`
	Manual          *SelectedLocation
	GPS             *GPSCityInfo
	ManualFetchedAt *time.Time `db:"manual_fetched_at"`
	GPSFetchedAt    *time.Time `db:"gps_fetched_at"`
	AutoApply       bool       `db:"auto_apply"`
}
