package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/ezanapp/minaret/internal/model"
)

// Period selects the size of the provider's rolling window.
type Period string

const (
	PeriodDaily   Period = "Daily"
	PeriodWeekly  Period = "Weekly"
	PeriodMonthly Period = "Monthly"
)

// remotePrayerRow is the provider's wire shape: localized DD.MM.YYYY
// dates and a "sunrise" field that maps to the internal "sun".
type remotePrayerRow struct {
	Date       string `json:"date"`
	Fajr       string `json:"fajr"`
	Sunrise    string `json:"sunrise"`
	Dhuhr      string `json:"dhuhr"`
	Asr        string `json:"asr"`
	Maghrib    string `json:"maghrib"`
	Isha       string `json:"isha"`
	HijriDate  string `json:"hijriDate"`
	HijriMonth string `json:"hijriMonth"`
	HijriYear  string `json:"hijriYear"`
}

// PrayerTimes fetches one window for a provider place id and transforms
// it to the internal shape. Rows with unparseable dates are dropped.
func (s *Session) PrayerTimes(ctx context.Context, period Period, placeID string) ([]model.PrayerTime, error) {
	var resp struct {
		Data []remotePrayerRow `json:"data"`
	}
	path := fmt.Sprintf("/prayertime/%s/%s", period, placeID)
	if err := s.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetch prayer times for %s: %w", placeID, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}

	series := make([]model.PrayerTime, 0, len(resp.Data))
	for _, row := range resp.Data {
		day, err := convertRemoteDate(row.Date)
		if err != nil {
			continue
		}
		series = append(series, model.PrayerTime{
			Date:       day,
			Fajr:       row.Fajr,
			Sun:        row.Sunrise,
			Dhuhr:      row.Dhuhr,
			Asr:        row.Asr,
			Maghrib:    row.Maghrib,
			Isha:       row.Isha,
			HijriDate:  row.HijriDate,
			HijriMonth: row.HijriMonth,
			HijriYear:  row.HijriYear,
		})
	}
	if len(series) == 0 {
		return nil, ErrNotFound
	}
	return series, nil
}

// convertRemoteDate turns DD.MM.YYYY into YYYY-MM-DD.
func convertRemoteDate(raw string) (string, error) {
	t, err := time.Parse("02.01.2006", raw)
	if err != nil {
		return "", fmt.Errorf("bad remote date %q: %w", raw, err)
	}
	return t.Format("2006-01-02"), nil
}
