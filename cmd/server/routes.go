package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/http/api"
	deviceapi "github.com/ezanapp/minaret/internal/http/api/devices/endpoints"
	locationapi "github.com/ezanapp/minaret/internal/http/api/location/endpoints"
	"github.com/ezanapp/minaret/internal/poller"
	"github.com/ezanapp/minaret/internal/provider"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, store db.Store, session *provider.Session,
	eng *engine.Engine, cache *engine.CacheManager, pol *poller.Poller) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/app",
		Auth:   false,
	},
		deviceapi.DevicePublicModule(env.SecretKey, store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/app",
		Auth:      true,
		SecretKey: env.SecretKey,
		Store:     store,
	},
		locationapi.PlacesModule(session),
		locationapi.SelectionModule(store, eng, session),
		locationapi.PrayerTimesModule(cache),
		locationapi.CheckModule(pol),
	)
}
