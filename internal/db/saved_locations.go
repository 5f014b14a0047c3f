package db

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/model"
)

// ListSavedLocations returns the ordered shortcut list, index 0 first.
func (s *pgStore) ListSavedLocations(deviceID int) ([]model.SelectedLocation, error) {
	var rows []struct {
		Place []byte `db:"place"`
	}
	err := s.db.Select(&rows, `
		SELECT place
		FROM saved_locations
		WHERE device_id = $1
		ORDER BY position
		`, deviceID)
	if err != nil {
		log.Error().Err(err).Int("device", deviceID).Msg("failed to list saved locations, treating as absent")
		return nil, nil
	}
	list := make([]model.SelectedLocation, 0, len(rows))
	for _, r := range rows {
		var sel model.SelectedLocation
		if err := json.Unmarshal(r.Place, &sel); err != nil {
			log.Error().Err(err).Msg("failed to decode saved location")
			continue
		}
		list = append(list, sel)
	}
	return list, nil
}

// ReplaceSavedLocations rewrites the whole list; order is position.
func (s *pgStore) ReplaceSavedLocations(deviceID int, list []model.SelectedLocation) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`DELETE FROM saved_locations WHERE device_id = $1`, deviceID); err != nil {
			return err
		}
		for i, sel := range list {
			raw, err := json.Marshal(sel)
			if err != nil {
				return fmt.Errorf("encode saved location: %w", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO saved_locations (device_id, position, place)
				VALUES ($1, $2, $3)
				`, deviceID, i, raw); err != nil {
				return err
			}
		}
		return nil
	})
}
