package endpoints

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/api/location/packets"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

// SelectionModule mounts the active-location and saved-locations endpoints.
func SelectionModule(store db.Store, eng *engine.Engine, session *provider.Session) api.Module {
	ctl := &LocationManager{store: store, engine: eng, session: session}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/location", ctl.getState)
		c.POST("/location/manual", ctl.selectManual)
		c.POST("/location/map", ctl.selectFromMap)
		c.PUT("/location/preferences", ctl.setAutoApply)
		c.GET("/location/saved", ctl.listSaved)
		c.POST("/location/saved", ctl.addSaved)
		c.DELETE("/location/saved/:index", ctl.removeSaved)
		c.PUT("/location/saved/:index/promote", ctl.promoteSaved)
	})
}

type LocationManager struct {
	store   db.Store
	engine  *engine.Engine
	session *provider.Session
}

// GET /api/app/location
func (l *LocationManager) getState(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	state, err := l.store.GetLocationState(device.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load location state"}
	}
	resp := packets.StateResponse{
		Mode:      state.Mode,
		Manual:    state.Manual,
		GPS:       state.GPS,
		AutoApply: state.AutoApply,
	}
	if state.ManualFetchedAt != nil {
		resp.ManualFetchedAt = state.ManualFetchedAt.Format(time.RFC3339)
	}
	if state.GPSFetchedAt != nil {
		resp.GPSFetchedAt = state.GPSFetchedAt.Format(time.RFC3339)
	}
	return resp, nil
}

// POST /api/app/location/manual
func (l *LocationManager) selectManual(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.SelectManualRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	ev, err := l.engine.SelectManual(ctx, device.ID, request.Selection())
	if err != nil {
		return nil, selectionError(err)
	}
	return ev, nil
}

// POST /api/app/location/map
// a map pick resolves the coordinate first, then runs the gps flow.
func (l *LocationManager) selectFromMap(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.SelectMapRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	detail, err := l.session.ResolveCity(ctx, *request.Latitude, *request.Longitude)
	if err != nil {
		return nil, providerError(err)
	}

	ev, err := l.engine.SelectGPS(ctx, device.ID, detail.GPSInfo())
	if err != nil {
		return nil, selectionError(err)
	}
	return ev, nil
}

// PUT /api/app/location/preferences
func (l *LocationManager) setAutoApply(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.AutoApplyRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := l.engine.SetAutoApply(device.ID, *request.Enabled); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save preference"}
	}
	return gin.H{"auto_apply": *request.Enabled}, nil
}

// GET /api/app/location/saved
func (l *LocationManager) listSaved(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	list, err := l.store.ListSavedLocations(device.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not list saved locations"}
	}
	return packets.SavedLocationsResponse{Locations: list}, nil
}

// POST /api/app/location/saved
func (l *LocationManager) addSaved(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.SelectManualRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := l.engine.AddSavedLocation(device.ID, request.Selection()); err != nil {
		return nil, selectionError(err)
	}
	return gin.H{"saved": true}, nil
}

// DELETE /api/app/location/saved/:index
func (l *LocationManager) removeSaved(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid index"}
	}
	ev, err := l.engine.RemoveSavedLocation(ctx, device.ID, index)
	if err != nil {
		return nil, selectionError(err)
	}
	return ev, nil
}

// PUT /api/app/location/saved/:index/promote
func (l *LocationManager) promoteSaved(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid index"}
	}
	if err := l.engine.PromoteSavedLocation(device.ID, index); err != nil {
		return nil, selectionError(err)
	}
	return gin.H{"promoted": true}, nil
}

func selectionError(err error) *api.APIError {
	switch {
	case errors.Is(err, engine.ErrIncompleteSelection):
		return &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, engine.ErrSavedListFull):
		return &api.APIError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, provider.ErrNotFound), errors.Is(err, provider.ErrTransient):
		return providerError(err)
	default:
		return &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}
}
