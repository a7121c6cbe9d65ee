package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/api/handlers"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/config"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/ethereum"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/memory"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/mysql"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/recordledger"
	redisbackend "github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/redis"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/websocket"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/services"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

func main() {
	log := logger.New()
	log.Info("Starting auction orchestrator")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.String())

	// Asset ledger. The sealed variant can run without one; value transfer
	// then happens out of band and is attached via the settlement endpoint.
	var assets domain.AssetLedger
	if cfg.Ethereum.PrivateKey != "" {
		eth, err := ethereum.New(cfg.Ethereum, log)
		if err != nil {
			log.Error("Failed to connect to asset ledger", "error", err)
			os.Exit(1)
		}
		assets = eth
		log.Info("Connected to asset ledger", "rpc", cfg.Ethereum.RPCURL, "chain_id", cfg.Ethereum.ChainID)
	} else if cfg.Auction.Variant != "sealed" {
		log.Error("Open variant requires an asset ledger; set PRIVATE_KEY")
		os.Exit(1)
	}

	// Record ledger backend.
	var (
		records domain.RecordLedger
		jobs    domain.CloseJobRepository
	)
	switch cfg.RecordLedger.Backend {
	case "mysql":
		db, err := mysql.NewConnection(cfg.MySQL)
		if err != nil {
			log.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		records = mysql.NewRecordStore(db, log)
		jobs = mysql.NewCloseJobRepository(db)
		log.Info("Connected to MySQL record ledger")
	default:
		records = recordledger.NewHTTPClient(cfg.RecordLedger, log)
		jobs = memory.NewCloseJobRepository()
		log.Info("Using HTTP record ledger", "url", cfg.RecordLedger.APIURL)
	}

	// Optional Redis: shared cache, event bus, leader election.
	var (
		cache     domain.AuctionCache = memory.NewAuctionCache()
		publisher domain.EventPublisher
		leader    domain.LeaderElection
		hub       = websocket.NewHub(log)
	)
	if cfg.Redis.Enabled {
		rdb, err := redisbackend.NewClient(cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		log.Info("Connected to Redis", "address", cfg.Redis.Address)

		if cfg.Cache.Backend == "redis" {
			cache = redisbackend.NewAuctionCache(rdb, log)
		}
		publisher = redisbackend.NewEventPublisher(rdb)
		leader = redisbackend.NewLeaderElection(rdb, cfg.Leader.TTL)

		subscriber := redisbackend.NewEventSubscriber(rdb, log)
		go func() {
			if err := subscriber.SubscribeAuctionEvents(context.Background(), hub.HandleEvent); err != nil &&
				!errors.Is(err, context.Canceled) {
				log.Error("Event subscriber exited", "error", err)
			}
		}()
	}

	// Without a shared bus, events feed the websocket hub directly.
	if publisher == nil {
		publisher = localPublisher{hub: hub}
	}

	limits := services.Limits{
		MinDuration: cfg.Auction.MinDuration,
		MaxDuration: cfg.Auction.MaxDuration,
	}
	engineOpts := []services.EngineOption{services.WithEventPublisher(publisher)}

	var engine *services.Engine
	switch cfg.Auction.Variant {
	case "sealed":
		engine = services.NewSealedEngine(assets, records, cache,
			memory.NewPrivateBidStore(), limits, log, engineOpts...)
	default:
		engine = services.NewOpenEngine(assets, records, cache,
			cfg.Ethereum.OperatorAddress, limits, log, engineOpts...)
	}

	var schedulerOpts []services.CloseSchedulerOption
	if leader != nil {
		schedulerOpts = append(schedulerOpts, services.WithLeaderElection(leader, cfg.Instance.ID))
	}
	scheduler := services.NewCloseScheduler(jobs, engine, log, schedulerOpts...)
	engine.SetCloseScheduler(scheduler)

	if err := scheduler.Start(context.Background()); err != nil {
		log.Error("Failed to start close scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	if leader != nil {
		go maintainLeadership(leader, cfg.Instance.ID, log)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.OPTIONS},
	}))

	auctionHandler := handlers.NewAuctionHandler(engine, log)
	auctionHandler.Register(e.Group("/api/v1"))

	wsHandler := handlers.NewWebSocketHandler(engine, hub, log)
	e.GET("/ws/auctions/:id", wsHandler.HandleConnection)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "auction-orchestrator",
			"variant":   cfg.Auction.Variant,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	if leader != nil {
		if err := leader.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
			log.Error("Failed to release leadership", "error", err)
		}
	}
	log.Info("Shutdown complete")
}

// maintainLeadership keeps retrying the leader lock so a standby takes over
// when the current leader's key expires.
func maintainLeadership(leader domain.LeaderElection, instanceID string, log logger.Logger) {
	for {
		became, err := leader.BecomeLeader(context.Background(), instanceID)
		if err != nil {
			log.Error("Leadership attempt failed", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if became {
			log.Info("Became close-sweep leader", "instance_id", instanceID)
		}
		time.Sleep(10 * time.Second)
	}
}

// localPublisher short-circuits events into the in-process websocket hub for
// single-instance deployments without Redis.
type localPublisher struct {
	hub *websocket.Hub
}

func (p localPublisher) PublishAuctionEvent(_ context.Context, event *domain.AuctionEvent) error {
	return p.hub.HandleEvent(event)
}
