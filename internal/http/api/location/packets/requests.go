package packets

import "github.com/ezanapp/minaret/internal/model"

// body for completing a manual picker selection
type SelectManualRequest struct {
	Country  model.PlaceItem `json:"country" binding:"required"`
	City     model.PlaceItem `json:"city" binding:"required"`
	District model.PlaceItem `json:"district" binding:"required"`
}

func (r SelectManualRequest) Selection() model.SelectedLocation {
	country, city, district := r.Country, r.City, r.District
	return model.SelectedLocation{Country: &country, City: &city, District: &district}
}

// body for a map pick: a raw coordinate the server resolves itself
type SelectMapRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// body for the change-detection trigger. The shell reports what only it
// can know: connectivity, permission state, and a fresh fix.
type CheckRequest struct {
	Trigger           string   `json:"trigger" binding:"required,oneof=start foreground"`
	Online            *bool    `json:"online" binding:"required"`
	PermissionGranted *bool    `json:"permission_granted" binding:"required"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

// body for accepting a previously surfaced change candidate
type ApplyCandidateRequest struct {
	ID      string `json:"id" binding:"required"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// body for the auto-apply preference
type AutoApplyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
