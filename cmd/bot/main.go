package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/kavyan/clipvault/internal/config"
	"github.com/kavyan/clipvault/internal/database"
	"github.com/kavyan/clipvault/internal/handler"
	"github.com/kavyan/clipvault/internal/player"
	"github.com/kavyan/clipvault/internal/queue"
	"github.com/kavyan/clipvault/internal/repository"
	"github.com/kavyan/clipvault/internal/router"
	"github.com/kavyan/clipvault/internal/service"
	"github.com/kavyan/clipvault/internal/transport"
)

func main() {
	// .env is optional; in containers everything arrives as real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	loc := cfg.Location()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	// Repositories.
	users := repository.NewUserRepo(db)
	catalog := repository.NewCatalogRepo(db)
	history := repository.NewHistoryRepo(rdb, cfg.TrailLen)
	reactionsRepo := repository.NewReactionRepo(rdb)

	// Services.
	publisher := service.NewNotifyPublisher(cfg.AmqpURL)
	ledger := service.NewAccessLedger(users, cfg.VerifyWindow, nil)
	quota := service.NewQuota(users, service.Ceilings{
		Free:     cfg.DailyLimitFree,
		Verified: cfg.DailyLimitVerified,
		Premium:  cfg.DailyLimitPremium,
	}, loc, nil)
	selector := service.NewSelector(catalog, history, cfg.SampleWindow)
	reactions := service.NewReactions(reactionsRepo, catalog)
	referral := service.NewReferral(users, ledger, publisher, cfg.RefereeGrant, cfg.ReferrerGrant)

	// The log bridge stands in until a real chat bridge is attached.
	bridge := transport.NewLogBridge()
	manager := player.NewManager(player.RealClock{}, cfg.SessionTimeout, bridge,
		users, ledger, quota, selector)

	dispatcher := handler.NewDispatcher(users, manager, selector, reactions, referral,
		ledger, quota, catalog, bridge, cfg.TokenGrant)

	// Background workers.
	go func() {
		if err := queue.StartNotifyConsumer(cfg.AmqpURL); err != nil {
			log.Printf("notify-consumer: %v", err)
		}
	}()
	sweep := service.NewReminderSweep(users, publisher, cfg.ReminderWindow, cfg.ReminderEvery, nil)
	go sweep.Run(context.Background())

	// HTTP surface.
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterEvents(e, handler.NewWebhookHandler(dispatcher), rlCfg, rdb)
	router.RegisterAdmin(e, handler.NewAuthHandler(cfg),
		handler.NewAdminHandler(users, catalog, history, ledger, publisher),
		cfg.JWTSecret, cacheCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
