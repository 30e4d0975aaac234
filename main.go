package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"

	"nigran/internal/config"
	"nigran/internal/controllers"
	"nigran/internal/middleware"
	"nigran/internal/models"
	"nigran/internal/routes"
	"nigran/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to the config file")
	listen := flag.String("listen", "", "listen address override")
	backend := flag.String("backend", "", "backend endpoint override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *backend != "" {
		cfg.Backend.Endpoint = *backend
	}

	services.InitAuthService(cfg.Auth.Secret, cfg.Auth.TokenExpiry())

	client, err := services.AcquireClient(cfg.Backend.Endpoint, services.RPCOptions{
		AutoConnect:          cfg.Backend.AutoConnect,
		AutoReconnect:        cfg.Backend.AutoReconnect,
		ReconnectInterval:    cfg.Backend.ReconnectInterval(),
		MaxReconnectAttempts: cfg.Backend.MaxReconnectAttempts,
		RequestTimeout:       cfg.Backend.RequestTimeout(),
		EnableHeartbeat:      cfg.Backend.EnableHeartbeat,
		HeartbeatInterval:    cfg.Backend.HeartbeatInterval(),
		Headers:              cfg.Backend.Headers,
	})
	if err != nil {
		log.Fatalf("rpc client: %v", err)
	}
	defer services.ReleaseClient()

	roster := services.NewRosterService(func(ctx context.Context) ([]models.RosterEntry, error) {
		return services.FetchRoster(ctx, client)
	})
	hub := services.InitDashboardHub()
	services.BindLiveFeed(client, roster, hub)
	controllers.Init(client, roster)

	if cfg.Backend.AutoConnect {
		go func() {
			if err := client.Connect(); err != nil {
				log.Printf("initial connect failed: %v", err)
			}
		}()
	}

	if cfg.Agent.Enabled {
		agent := services.StartAgent(client, cfg.Agent.Interval())
		defer agent.Stop()
	}

	r := gin.Default()
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter()))

	routes.RegisterAPIRoutes(r)
	routes.RegisterLiveRoutes(r, middleware.NewTokenRateLimiter())

	r.Run(cfg.Listen)
}
