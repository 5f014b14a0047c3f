package provider

import (
	"context"
	"fmt"

	"github.com/ezanapp/minaret/internal/model"
)

// CityDetail is the reverse-geocode result. The ID is the provider's own
// location id and does not live in the manual hierarchy id space.
type CityDetail struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	QiblaAngle float64 `json:"qiblaAngle"`
}

func (c CityDetail) GPSInfo() model.GPSCityInfo {
	return model.GPSCityInfo{ID: c.ID, Name: c.Name, City: c.City, Country: c.Country}
}

// Countries lists the top hierarchy level.
func (s *Session) Countries(ctx context.Context) ([]model.PlaceItem, error) {
	var resp struct {
		Data []model.PlaceItem `json:"data"`
	}
	if err := s.getJSON(ctx, "/countries", &resp); err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	return resp.Data, nil
}

// States lists states of one country.
func (s *Session) States(ctx context.Context, countryID int) ([]model.PlaceItem, error) {
	var resp struct {
		Data []model.PlaceItem `json:"data"`
	}
	if err := s.getJSON(ctx, fmt.Sprintf("/states/%d", countryID), &resp); err != nil {
		return nil, fmt.Errorf("fetch states of %d: %w", countryID, err)
	}
	return resp.Data, nil
}

// Districts lists districts of one state.
func (s *Session) Districts(ctx context.Context, stateID int) ([]model.PlaceItem, error) {
	var resp struct {
		Data []model.PlaceItem `json:"data"`
	}
	if err := s.getJSON(ctx, fmt.Sprintf("/districts/%d", stateID), &resp); err != nil {
		return nil, fmt.Errorf("fetch districts of %d: %w", stateID, err)
	}
	return resp.Data, nil
}

// Zone resolves the IANA zone name for a place tuple via the provider's
// geocoding endpoint. Callers cache the result; a zone for a fixed place
// never changes.
func (s *Session) Zone(ctx context.Context, country, city, region string) (string, error) {
	var resp struct {
		Data struct {
			Timezone string `json:"timezone"`
		} `json:"data"`
	}
	body := map[string]string{"country": country, "city": city, "region": region}
	if err := s.postJSON(ctx, "/place/timezone", body, &resp); err != nil {
		return "", fmt.Errorf("resolve timezone: %w", err)
	}
	if resp.Data.Timezone == "" {
		return "", ErrNotFound
	}
	return resp.Data.Timezone, nil
}

// ResolveCity reverse-geocodes a coordinate to the nearest provider place.
// An empty result surfaces as ErrNotFound so callers can treat it as a
// soft failure.
func (s *Session) ResolveCity(ctx context.Context, latitude, longitude float64) (*CityDetail, error) {
	var resp struct {
		Data *CityDetail `json:"data"`
	}
	body := map[string]float64{"latitude": latitude, "longitude": longitude}
	if err := s.postJSON(ctx, "/place/city", body, &resp); err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, ErrNotFound
	}
	return resp.Data, nil
}
