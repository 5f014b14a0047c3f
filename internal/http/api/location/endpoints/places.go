package endpoints

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/api/location/packets"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/provider"
)

// PlacesModule mounts the manual picker's hierarchy browsing endpoints.
func PlacesModule(session *provider.Session) api.Module {
	ctl := &PlaceBrowser{session: session}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/places/countries", ctl.listCountries)
		c.GET("/places/states/:countryID", ctl.listStates)
		c.GET("/places/districts/:stateID", ctl.listDistricts)
	})
}

type PlaceBrowser struct {
	session *provider.Session
}

// GET /api/app/places/countries
func (p *PlaceBrowser) listCountries(ctx *gin.Context, _ *model.Device) (any, *api.APIError) {
	items, err := p.session.Countries(ctx)
	if err != nil {
		return nil, providerError(err)
	}
	return packets.PlacesResponse{Places: items}, nil
}

// GET /api/app/places/states/:countryID
func (p *PlaceBrowser) listStates(ctx *gin.Context, _ *model.Device) (any, *api.APIError) {
	countryID, err := strconv.Atoi(ctx.Param("countryID"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid country id"}
	}
	items, err := p.session.States(ctx, countryID)
	if err != nil {
		return nil, providerError(err)
	}
	return packets.PlacesResponse{Places: items}, nil
}

// GET /api/app/places/districts/:stateID
func (p *PlaceBrowser) listDistricts(ctx *gin.Context, _ *model.Device) (any, *api.APIError) {
	stateID, err := strconv.Atoi(ctx.Param("stateID"))
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid state id"}
	}
	items, err := p.session.Districts(ctx, stateID)
	if err != nil {
		return nil, providerError(err)
	}
	return packets.PlacesResponse{Places: items}, nil
}

func providerError(err error) *api.APIError {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		return &api.APIError{Code: http.StatusNotFound, Message: "place not found"}
	case errors.Is(err, provider.ErrTransient):
		return &api.APIError{Code: http.StatusBadGateway, Message: "prayer time provider unavailable"}
	default:
		return &api.APIError{Code: http.StatusBadGateway, Message: err.Error()}
	}
}
