package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/model"
)

type locationStateRow struct {
	DeviceID        int        `db:"device_id"`
	Mode            string     `db:"mode"`
	Manual          []byte     `db:"manual"`
	GPSID           *string    `db:"gps_id"`
	GPSName         *string    `db:"gps_name"`
	GPSCity         *string    `db:"gps_city"`
	GPSCountry      *string    `db:"gps_country"`
	ManualFetchedAt *time.Time `db:"manual_fetched_at"`
	GPSFetchedAt    *time.Time `db:"gps_fetched_at"`
	AutoApply       bool       `db:"auto_apply"`
}

// GetLocationState loads the per-device state row. A missing row (or a
// failed read) degrades to the first-run default: gps mode, nothing cached.
func (s *pgStore) GetLocationState(deviceID int) (*model.LocationState, error) {
	var row locationStateRow
	err := s.db.Get(&row, `
		SELECT device_id, mode, manual, gps_id, gps_name, gps_city, gps_country,
		       manual_fetched_at, gps_fetched_at, auto_apply
		FROM location_state
		WHERE device_id = $1
		`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.LocationState{DeviceID: deviceID, Mode: model.ModeGPS}, nil
	}
	if err != nil {
		log.Error().Err(err).Int("device", deviceID).Msg("failed to load location state, treating as absent")
		return &model.LocationState{DeviceID: deviceID, Mode: model.ModeGPS}, nil
	}

	state := &model.LocationState{
		DeviceID:        row.DeviceID,
		Mode:            model.LocationMode(row.Mode),
		ManualFetchedAt: row.ManualFetchedAt,
		GPSFetchedAt:    row.GPSFetchedAt,
		AutoApply:       row.AutoApply,
	}
	if len(row.Manual) > 0 {
		var sel model.SelectedLocation
		if err := json.Unmarshal(row.Manual, &sel); err != nil {
			log.Error().Err(err).Int("device", deviceID).Msg("failed to decode manual selection")
		} else {
			state.Manual = &sel
		}
	}
	if row.GPSID != nil && *row.GPSID != "" {
		state.GPS = &model.GPSCityInfo{
			ID:      *row.GPSID,
			Name:    deref(row.GPSName),
			City:    deref(row.GPSCity),
			Country: deref(row.GPSCountry),
		}
	}
	return state, nil
}

func (s *pgStore) SetAutoApply(deviceID int, on bool) error {
	_, err := s.db.Exec(`
		INSERT INTO location_state (device_id, mode, auto_apply)
		VALUES ($1, 'gps', $2)
		ON CONFLICT (device_id) DO UPDATE SET auto_apply = $2, updated_at = now()
		`, deviceID, on)
	if err != nil {
		log.Error().Err(err).Msg("failed to set auto apply preference")
	}
	return err
}

// SwitchToManual writes the manual payload and clears every GPS-owned
// field in one transaction, new data first.
func (s *pgStore) SwitchToManual(deviceID int, sel model.SelectedLocation, series []model.PrayerTime, fetchedAt time.Time) error {
	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode manual selection: %w", err)
	}
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO location_state (device_id, mode, manual, manual_fetched_at)
			VALUES ($1, 'manual', $2, $3)
			ON CONFLICT (device_id) DO UPDATE SET
				mode = 'manual',
				manual = $2,
				manual_fetched_at = $3,
				updated_at = now()
			`, deviceID, raw, fetchedAt); err != nil {
			return err
		}
		if err := replaceSeriesTx(tx, deviceID, model.ModeManual, series); err != nil {
			return err
		}
		// clear the other mode last so a crash leaves both present, never neither
		if _, err := tx.Exec(`
			UPDATE location_state
			SET gps_id = NULL, gps_name = NULL, gps_city = NULL, gps_country = NULL,
			    gps_fetched_at = NULL, updated_at = now()
			WHERE device_id = $1
			`, deviceID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM prayer_times WHERE device_id = $1 AND mode = 'gps'`, deviceID)
		return err
	})
}

// SwitchToGPS mirrors SwitchToManual for the gps direction, additionally
// clearing the legacy single-location manual fields.
func (s *pgStore) SwitchToGPS(deviceID int, info model.GPSCityInfo, series []model.PrayerTime, fetchedAt time.Time) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO location_state (device_id, mode, gps_id, gps_name, gps_city, gps_country, gps_fetched_at)
			VALUES ($1, 'gps', $2, $3, $4, $5, $6)
			ON CONFLICT (device_id) DO UPDATE SET
				mode = 'gps',
				gps_id = $2, gps_name = $3, gps_city = $4, gps_country = $5,
				gps_fetched_at = $6,
				updated_at = now()
			`, deviceID, info.ID, info.Name, info.City, info.Country, fetchedAt); err != nil {
			return err
		}
		if err := replaceSeriesTx(tx, deviceID, model.ModeGPS, series); err != nil {
			return err
		}
		if _, err := tx.Exec(`
			UPDATE location_state
			SET manual = NULL, manual_fetched_at = NULL, updated_at = now()
			WHERE device_id = $1
			`, deviceID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM prayer_times WHERE device_id = $1 AND mode = 'manual'`, deviceID)
		return err
	})
}

func (s *pgStore) inTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return tx.Commit()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
