package endpoints

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/http/api"
	"github.com/ezanapp/minaret/internal/http/api/location/packets"
	"github.com/ezanapp/minaret/internal/model"
	"github.com/ezanapp/minaret/internal/poller"
)

var errNoFix = errors.New("no coordinate supplied with check request")

// CheckModule mounts the change-detection trigger endpoints. The shell
// calls /location/check once at app start and on foreground transitions.
func CheckModule(pol *poller.Poller) api.Module {
	ctl := &CheckManager{poller: pol}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/location/check", ctl.runCheck)
		c.POST("/location/check/apply", ctl.applyCandidate)
	})
}

type CheckManager struct {
	poller *poller.Poller
}

// POST /api/app/location/check
func (m *CheckManager) runCheck(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.CheckRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	cond := poller.Conditions{
		Online:            *request.Online,
		PermissionGranted: *request.PermissionGranted,
	}
	src := poller.LocationSourceFunc(func(context.Context) (poller.Fix, error) {
		if request.Latitude == nil || request.Longitude == nil {
			return poller.Fix{}, errNoFix
		}
		return poller.Fix{Latitude: *request.Latitude, Longitude: *request.Longitude}, nil
	})

	ev, err := m.poller.Check(ctx, device.ID, poller.Trigger(request.Trigger), cond, src)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}
	return ev, nil
}

// POST /api/app/location/check/apply
// accepts the candidate from a LocationChangeDetected prompt.
func (m *CheckManager) applyCandidate(ctx *gin.Context, device *model.Device) (any, *api.APIError) {
	var request packets.ApplyCandidateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	candidate := model.GPSCityInfo{
		ID:      request.ID,
		Name:    request.Name,
		City:    request.City,
		Country: request.Country,
	}
	ev, err := m.poller.Apply(ctx, device.ID, candidate)
	if err != nil {
		return nil, selectionError(err)
	}
	return ev, nil
}
