package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/api/devices/packets"
	"github.com/ezanapp/minaret/internal/http/middleware"
)

// DevicePublicModule mounts the public install endpoints
// (/devices/register, /devices/token)
func DevicePublicModule(jwtSecret string, store db.Store) api.Module {
	ctl := newDeviceManager(jwtSecret, store)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/devices/register", ctl.registerDevice)
		c.PUBLIC_POST("/devices/token", ctl.refreshToken)
	})
}

type DeviceManager struct {
	jwtSecret string
	store     db.Store
}

func newDeviceManager(secret string, store db.Store) *DeviceManager {
	return &DeviceManager{jwtSecret: secret, store: store}
}

// POST /api/app/devices/register
func (d *DeviceManager) registerDevice(ctx *gin.Context) (any, *api.APIError) {
	var request packets.RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	if existing, _ := d.store.GetDeviceByDeviceID(request.DeviceID); existing != nil {
		log.Warn().Str("device_id", request.DeviceID).Msg("device already registered")
		return nil, &api.APIError{Code: http.StatusConflict, Message: "device already registered"}
	}

	hashed, err := middleware.HashSecret(request.Secret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not hash secret"}
	}

	id, err := d.store.CreateDevice(request.DeviceID, hashed, request.Platform)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create device"}
	}

	token, err := middleware.GenerateJWT(id, d.jwtSecret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not generate token"}
	}

	return gin.H{"token": token}, nil
}

// POST /api/app/devices/token
func (d *DeviceManager) refreshToken(ctx *gin.Context) (any, *api.APIError) {
	var request packets.TokenRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	device, err := d.store.GetDeviceByDeviceID(request.DeviceID)
	if err != nil || device == nil || !middleware.CheckSecret(device.HashedSecret, request.Secret) {
		return nil, &api.APIError{Code: http.StatusUnauthorized, Message: middleware.ErrInvalidCredentials.Error()}
	}

	token, err := middleware.GenerateJWT(device.ID, d.jwtSecret)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not generate token"}
	}

	return gin.H{"token": token}, nil
}
