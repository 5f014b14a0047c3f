package packets

import "github.com/ezanapp/minaret/internal/model"

// StateResponse mirrors model.LocationState but flattens times to RFC3339.
type StateResponse struct {
	Mode            model.LocationMode      `json:"mode"`
	Manual          *model.SelectedLocation `json:"manual,omitempty"`
	GPS             *model.GPSCityInfo      `json:"gps,omitempty"`
	ManualFetchedAt string                  `json:"manual_fetched_at,omitempty"`
	GPSFetchedAt    string                  `json:"gps_fetched_at,omitempty"`
	AutoApply       bool                    `json:"auto_apply"`
}

// SeriesResponse carries the cached window plus the current-day record,
// which is null when the cache does not cover today.
type SeriesResponse struct {
	Series []model.PrayerTime `json:"series"`
	Today  *model.PrayerTime  `json:"today"`
}

type SavedLocationsResponse struct {
	Locations []model.SelectedLocation `json:"locations"`
}

type PlacesResponse struct {
	Places []model.PlaceItem `json:"places"`
}
