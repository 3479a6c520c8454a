package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/akipresenca/aki_device_agent/internal/bff"
	"github.com/akipresenca/aki_device_agent/internal/config"
	"github.com/akipresenca/aki_device_agent/internal/connectivity"
	"github.com/akipresenca/aki_device_agent/internal/database"
	"github.com/akipresenca/aki_device_agent/internal/geo"
	"github.com/akipresenca/aki_device_agent/internal/identity"
	"github.com/akipresenca/aki_device_agent/internal/models"
	"github.com/akipresenca/aki_device_agent/internal/orchestrator"
	"github.com/akipresenca/aki_device_agent/internal/queue"
	"github.com/akipresenca/aki_device_agent/internal/routes"
	"github.com/akipresenca/aki_device_agent/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	// A broken local store is survivable: identity and queue degrade to
	// in-memory behavior for the session.
	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Printf("local store unavailable, running without persistence: %v", err)
		db = nil
	} else if err := database.Migrate(db); err != nil {
		log.Printf("local store migration failed, running without persistence: %v", err)
		db = nil
	}

	ident := identity.NewStore(db)
	q := queue.New(db, cfg.MaxRetries)
	client := bff.NewClient(cfg.BFFBaseURL, cfg.SubmitTimeout)
	state := connectivity.NewState()
	state.SetQueueDepth(q.Count())

	var provider geo.Provider
	if cfg.DeviceLatitude != nil && cfg.DeviceLongitude != nil {
		provider = geo.StaticProvider{Location: models.Location{
			Latitude:  *cfg.DeviceLatitude,
			Longitude: *cfg.DeviceLongitude,
		}}
	}
	resolver := geo.NewResolver(provider, cfg.LocationTimeout)

	hub := ws.NewStatusHub()
	go hub.Run()

	orch := orchestrator.New(orchestrator.Config{
		Submitter:    client,
		Identity:     ident,
		Queue:        q,
		Resolver:     resolver,
		State:        state,
		DB:           db,
		Cooldown:     cfg.Cooldown,
		HistoryLimit: cfg.TokenHistoryLimit,
		Notify: func(out orchestrator.Outcome) {
			snap := state.Snapshot()
			hub.Broadcast(ws.StatusMessage{
				Online:      snap.Online,
				QueueDepth:  snap.QueueDepth,
				Registered:  ident.IsRegistered(),
				LastOutcome: string(out.Kind),
				Message:     out.Message,
			})
		},
	})

	state.Subscribe(func(snap connectivity.Status) {
		last := orch.LastOutcome()
		hub.Broadcast(ws.StatusMessage{
			Online:      snap.Online,
			QueueDepth:  snap.QueueDepth,
			Registered:  ident.IsRegistered(),
			LastOutcome: string(last.Kind),
		})
	})

	monitor := connectivity.NewMonitor(client.BaseURL(), cfg.ProbeInterval, orch.HandleConnectivity)
	go monitor.Run(context.Background())

	log.Printf("device %s ready, %d queued submissions pending", ident.GetOrCreate(), q.Count())

	// Replay anything left over from a previous session once the BFF answers.
	if q.Count() > 0 {
		go func() {
			if monitor.Probe(context.Background()) {
				rep := orch.Drain(context.Background())
				log.Printf("startup sync: %d delivered, %d dropped, %d remaining", rep.Delivered, rep.Dropped, rep.Remaining)
			}
		}()
	}

	r := gin.Default()
	routes.Register(r, orch, ident, client, state, hub)

	port := cfg.Port
	if port == "" {
		port = "8087"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("agent exited with error:", err)
		os.Exit(1)
	}
}
