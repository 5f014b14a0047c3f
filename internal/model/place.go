package model

// LocationMode says which source currently owns the active location.
type LocationMode string

const (
	ModeGPS    LocationMode = "gps"
	ModeManual LocationMode = "manual"
)

// Other returns the mode that is not m.
func (m LocationMode) Other() LocationMode {
	if m == ModeGPS {
		return ModeManual
	}
	return ModeGPS
}

// PlaceItem is one node of the country → state → district hierarchy.
// ID 0 marks a synthetic entry (GPS/map derived, not backed by the
// hierarchy), in which case identity falls back to name matching.
type PlaceItem struct {
	ID   int    `db:"id"   json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// SelectedLocation is a manual picker selection. Complete iff all three
// levels are set.
type SelectedLocation struct {
	Country  *PlaceItem `json:"country"`
	City     *PlaceItem `json:"city"`
	District *PlaceItem `json:"district"`
}

func (s SelectedLocation) Complete() bool {
	return s.Country != nil && s.City != nil && s.District != nil
}

// DisplayName prefers the district name, falling back to the city.
func (s SelectedLocation) DisplayName() string {
	if s.District != nil && s.District.Name != "" {
		return s.District.Name
	}
	if s.City != nil {
		return s.City.Name
	}
	return ""
}

// GPSCityInfo is a GPS/map derived place. The ID is the provider's
// location id, not a hierarchy id.
type GPSCityInfo struct {
	ID      string `db:"id"      json:"id"`
	Name    string `db:"name"    json:"name"`
	City    string `db:"city"    json:"city"`
	Country string `db:"country" json:"country"`
}

func (g GPSCityInfo) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.City
}
