package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/model"
)

func (s *pgStore) CreateDevice(deviceID, hashedSecret string, platform *string) (int, error) {
	var id int
	err := s.db.Get(&id, `
		INSERT INTO devices (device_id, hashed_secret, platform, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id
		`, deviceID, hashedSecret, platform)
	if err != nil {
		log.Error().Err(err).Msg("failed to create device")
		return 0, err
	}
	return id, nil
}

func (s *pgStore) GetDeviceByDeviceID(deviceID string) (*model.Device, error) {
	var d model.Device
	err := s.db.Get(&d, `
		SELECT id, device_id, hashed_secret, platform, created_at, updated_at
		FROM devices
		WHERE device_id = $1
		`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get device by device id")
		return nil, err
	}
	return &d, nil
}

func (s *pgStore) ListDeviceIDs() ([]int, error) {
	var ids []int
	err := s.db.Select(&ids, `SELECT id FROM devices ORDER BY id`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list device ids")
		return nil, err
	}
	return ids, nil
}

func (s *pgStore) GetDeviceByID(id int) (*model.Device, error) {
	var d model.Device
	err := s.db.Get(&d, `
		SELECT id, device_id, hashed_secret, platform, created_at, updated_at
		FROM devices
		WHERE id = $1
		`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get device by id")
		return nil, err
	}
	return &d, nil
}
