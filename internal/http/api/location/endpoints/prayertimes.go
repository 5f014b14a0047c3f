package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/api/location/packets"
	"github.com/ezanapp/minaret/internal/model"
)

// PrayerTimesModule mounts the cached-series endpoints.
func PrayerTimesModule(cache *engine.CacheManager) api.Module {
	ctl := &PrayerTimeManager{cache: cache}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/prayertimes", ctl.getSeries)
		c.GET("/prayertimes/today", ctl.getToday)
		c.POST("/prayertimes/refresh", ctl.forceRefresh)
	})
}

type PrayerTimeManager struct {
	cache *engine.CacheManager
}

// GET /api/app/prayertimes
func (p *PrayerTimeManager) getSeries(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	series, today, err := p.cache.EnsureFresh(ctx, device.ID, false)
	if err != nil {
		return nil, cacheError(err)
	}
	return packets.SeriesResponse{Series: series, Today: today}, nil
}

// GET /api/app/prayertimes/today
func (p *PrayerTimeManager) getToday(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	today, err := p.cache.Today(ctx, device.ID)
	if err != nil {
		return nil, cacheError(err)
	}
	return packets.SeriesResponse{Today: today}, nil
}

// POST /api/app/prayertimes/refresh
// bypasses the freshness checks entirely.
func (p *PrayerTimeManager) forceRefresh(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	series, today, err := p.cache.EnsureFresh(ctx, device.ID, true)
	if err != nil {
		return nil, cacheError(err)
	}
	return packets.SeriesResponse{Series: series, Today: today}, nil
}

func cacheError(err error) *api.APIError {
	if errors.Is(err, engine.ErrNoActiveLocation) {
		return &api.APIError{Code: http.StatusNotFound, Message: "no active location"}
	}
	return &api.APIError{Code: http.StatusBadGateway, Message: err.Error()}
}
