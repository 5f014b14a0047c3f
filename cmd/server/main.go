package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ezanapp/minaret/internal/civil"
	"github.com/ezanapp/minaret/internal/db"
	"github.com/ezanapp/minaret/internal/engine"
	"github.com/ezanapp/minaret/internal/poller"
	"github.com/ezanapp/minaret/internal/provider"
	"github.com/ezanapp/minaret/internal/redis"
	"github.com/ezanapp/minaret/internal/widget"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()
	env := LoadEnvironment()

	if err := db.Init(env.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init")
	}
	if err := db.RunMigrations(env.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	redis.InitRedis(env.RedisAddress, env.RedisUsername, env.RedisPassword)

	store := db.NewStore()
	session := provider.NewSession(env.ProviderBaseURL, env.ProviderEmail, env.ProviderPassword)

	bridge, err := widget.NewBridge(env.MQTTBrokerURL, "minaret-server")
	if err != nil {
		log.Fatal().Err(err).Msg("widget bridge init")
	}

	eng := engine.New(store, session, bridge)
	resolver := civil.NewResolver(session, civil.RedisZoneCache{})
	cache := engine.NewCacheManager(store, session, resolver, bridge)
	bridge.AttachEngine(store, cache)
	pol := poller.New(store, session, eng, bridge, poller.RedisStamps{})

	// midnight rollover for widgets
	go bridge.RunRollover(context.Background(), time.Minute)

	if env.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	RegisterRoutes(r, env, store, session, eng, cache, pol)

	log.Info().Str("addr", env.ServerAddress).Msg("listening")
	if err := r.Run(env.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
