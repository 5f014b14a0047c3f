package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/model"
)

// GetSeries returns the cached series for one mode, oldest day first.
// A failed read degrades to an empty series.
func (s *pgStore) GetSeries(deviceID int, mode model.LocationMode) ([]model.PrayerTime, error) {
	var series []model.PrayerTime
	err := s.db.Select(&series, `
		SELECT day, fajr, sun, dhuhr, asr, maghrib, isha, hijri_date, hijri_month, hijri_year
		FROM prayer_times
		WHERE device_id = $1 AND mode = $2
		ORDER BY day
		`, deviceID, string(mode))
	if err != nil {
		log.Error().Err(err).Int("device", deviceID).Str("mode", string(mode)).
			Msg("failed to load prayer time series, treating as absent")
		return nil, nil
	}
	return series, nil
}

// ReplaceSeries swaps the whole cached window for one mode and stamps the
// fetch time. The provider always returns a full rolling window, so there
// is no incremental merge.
func (s *pgStore) ReplaceSeries(deviceID int, mode model.LocationMode, series []model.PrayerTime, fetchedAt time.Time) error {
	col := "gps_fetched_at"
	if mode == model.ModeManual {
		col = "manual_fetched_at"
	}
	return s.inTx(func(tx *sqlx.Tx) error {
		if err := replaceSeriesTx(tx, deviceID, mode, series); err != nil {
			return err
		}
		_, err := tx.Exec(`
			INSERT INTO location_state (device_id, mode, `+col+`)
			VALUES ($1, $2, $3)
			ON CONFLICT (device_id) DO UPDATE SET `+col+` = $3, updated_at = now()
			`, deviceID, string(mode), fetchedAt)
		return err
	})
}

func replaceSeriesTx(tx *sqlx.Tx, deviceID int, mode model.LocationMode, series []model.PrayerTime) error {
	if _, err := tx.Exec(`DELETE FROM prayer_times WHERE device_id = $1 AND mode = $2`, deviceID, string(mode)); err != nil {
		return err
	}
	for _, row := range series {
		_, err := tx.Exec(`
			INSERT INTO prayer_times (device_id, mode, day, fajr, sun, dhuhr, asr, maghrib, isha, hijri_date, hijri_month, hijri_year)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (device_id, mode, day) DO UPDATE SET
				fajr = $4, sun = $5, dhuhr = $6, asr = $7, maghrib = $8, isha = $9,
				hijri_date = $10, hijri_month = $11, hijri_year = $12
			`, deviceID, string(mode), row.Date, row.Fajr, row.Sun, row.Dhuhr,
			row.Asr, row.Maghrib, row.Isha, row.HijriDate, row.HijriMonth, row.HijriYear)
		if err != nil {
			return err
		}
	}
	return nil
}
