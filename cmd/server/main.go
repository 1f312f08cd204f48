package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/gasgate/internal/chain"
	"github.com/GoPolymarket/gasgate/internal/config"
	"github.com/GoPolymarket/gasgate/internal/events"
	"github.com/GoPolymarket/gasgate/internal/getreal"
	"github.com/GoPolymarket/gasgate/internal/handler"
	"github.com/GoPolymarket/gasgate/internal/middleware"
	"github.com/GoPolymarket/gasgate/internal/pkg/logger"
	"github.com/GoPolymarket/gasgate/internal/repository"
	"github.com/GoPolymarket/gasgate/internal/service"
	"github.com/GoPolymarket/gasgate/internal/signer"
	"github.com/GoPolymarket/gasgate/internal/station"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Log.Level)

	// 2. Chain access and signers
	stationAddr, err := signer.ParseAddress("station.address", cfg.Station.Address)
	if err != nil {
		log.Fatalf("Invalid station address: %v", err)
	}
	didPre, err := signer.ParseAddress("precompiles.did", cfg.Precompiles.DID)
	if err != nil {
		log.Fatalf("Invalid DID precompile: %v", err)
	}
	storagePre, err := signer.ParseAddress("precompiles.storage", cfg.Precompiles.Storage)
	if err != nil {
		log.Fatalf("Invalid storage precompile: %v", err)
	}

	owner, err := signer.NewKeySigner(cfg.Station.OwnerPrivateKey, "owner")
	if err != nil {
		log.Fatalf("Failed to load station owner key: %v", err)
	}
	var machine signer.TypedDataSigner
	if cfg.Station.MachinePrivateKey != "" {
		ms, err := signer.NewKeySigner(cfg.Station.MachinePrivateKey, "machine")
		if err != nil {
			log.Fatalf("Failed to load machine key: %v", err)
		}
		logger.Warn("Machine key loaded from config; use for non-production flows only", "machine", ms.Address().Hex())
		machine = ms
	}

	rpc, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		log.Fatalf("Failed to dial RPC: %v", err)
	}
	defer rpc.Close()

	contract, err := station.NewContract(stationAddr)
	if err != nil {
		log.Fatalf("Failed to load station ABI: %v", err)
	}
	submitter := chain.NewSubmitter(rpc, owner, cfg.Chain.ChainID,
		chain.WithGasLimit(cfg.Chain.GasLimit),
		chain.WithPollInterval(time.Duration(cfg.Chain.ReceiptPollMs)*time.Millisecond),
		chain.WithMethodNamer(contract.MethodName),
	)

	// 3. Initialize Persistence (Postgres > Redis > Memory)
	var (
		db          *sqlx.DB
		redisClient *repository.RedisClient
	)
	if cfg.Database.DSN != "" {
		if conn, err := repository.NewDB(cfg); err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			db = conn
		} else {
			logger.Error("⚠️ Failed to connect to DB, falling back", "error", err)
		}
	}
	if cfg.Redis.Addr != "" {
		if rc, err := repository.NewRedisClient(cfg); err == nil {
			logger.Info("✅ Connected to Redis")
			redisClient = rc
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}

	var (
		usageRepo   service.UsageRepo = service.NewUsageStore()
		accountRepo service.AccountRepo
		auditRepo   service.AuditRepo
		clientRepo  service.ClientRepoCRUD
		idemStore   middleware.IdempotencyStore = middleware.NewInMemIdempotencyStore()
	)
	if redisClient != nil {
		usageRepo = repository.NewRedisUsageRepo(redisClient)
		accountRepo = repository.NewRedisAccountRepo(redisClient)
		auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
		idemStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
	}
	var cleaners []cleaner
	if db != nil {
		pgUsage := repository.NewPostgresUsageRepo(db)
		pgAudit := repository.NewPostgresAuditRepo(db)
		pgIdem := repository.NewPostgresIdempotencyStore(db)
		usageRepo = pgUsage
		accountRepo = repository.NewPostgresAccountRepo(db)
		auditRepo = pgAudit
		clientRepo = repository.NewPostgresClientRepo(db)
		if redisClient == nil {
			idemStore = pgIdem
		}
		cleaners = append(cleaners,
			cleaner{"audit_logs", pgAudit, time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour},
			cleaner{"sponsor_requests", pgIdem, time.Duration(cfg.Database.IdempotencyRetentionHours) * time.Hour},
			cleaner{"sponsor_daily_usage", pgUsage, 7 * 24 * time.Hour},
		)
	}

	// 4. Initialize Core Services
	clientManager := service.NewClientManager(cfg, clientRepo)
	clientSvc := service.NewClientService(clientManager, clientRepo)
	quotaGuard := service.NewQuotaGuard(usageRepo)

	auditSvc, err := service.NewAuditService(cfg.Server.AuditDir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	hub := events.NewHub()
	getRealClient := getreal.NewClient(getreal.Config{
		BaseURL:       cfg.GetReal.BaseURL,
		ServiceAPIKey: cfg.GetReal.ServiceAPIKey,
		ProjectAPIKey: cfg.GetReal.ProjectAPIKey,
		Timeout:       time.Duration(cfg.GetReal.TimeoutMs) * time.Millisecond,
	})

	relaySvc := service.NewRelayService(service.RelayConfig{
		ChainID:           cfg.Chain.ChainID,
		Station:           stationAddr,
		DIDPrecompile:     didPre,
		StoragePrecompile: storagePre,
		GasLimit:          cfg.Chain.GasLimit,
	}, contract, service.NewAuthorizer(owner, machine), submitter, getRealClient,
		service.WithEventPublisher(hub),
	)
	registry := service.NewAccountRegistry(accountRepo, service.NewAccountProbe(rpc, 5*time.Minute, 3*time.Second, 2))
	verifySvc := service.NewVerificationService(getRealClient)

	// 5. Initialize Handlers
	relayHandler := handler.NewRelayHandler(relaySvc)
	accountHandler := handler.NewAccountHandler(relaySvc, registry)
	verifyHandler := handler.NewVerifyHandler(verifySvc)
	eventsHandler := handler.NewEventsHandler(hub)
	usageHandler := handler.NewUsageHandler(quotaGuard)
	auditHandler := handler.NewAuditHandler(auditSvc)
	clientHandler := handler.NewClientHandler(clientSvc)

	// 6. Setup Router
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Global Middleware
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))
	r.Use(middleware.ErrorHandler())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gasgate"})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, clientManager))
	v1.Use(middleware.RateLimitMiddleware(clientManager))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Relay.ReadOnly))
	{
		v1.GET("/station", relayHandler.Status)
		v1.GET("/machine-accounts/:eoa", accountHandler.Lookup)
		v1.GET("/usage", usageHandler.Get)
		v1.GET("/audit", auditHandler.List)
		v1.GET("/events", eventsHandler.Stream)
		v1.GET("/events/recent", eventsHandler.Recent)
		v1.POST("/verify/did", verifyHandler.DID)
		v1.POST("/verify/storage", verifyHandler.Storage)

		// 签名类路由不上链, 但每次都会消耗一个赞助 nonce
		sponsored := v1.Group("")
		sponsored.Use(middleware.IdempotencyMiddleware(idemStore))
		sponsored.Use(middleware.QuotaMiddleware(quotaGuard))
		sponsored.Use(middleware.TimeoutMiddleware(time.Duration(cfg.Chain.SubmitTimeoutSeconds) * time.Second))
		sponsored.POST("/machine-accounts", accountHandler.Create)
		sponsored.POST("/station/transfer", relayHandler.TransferStation)
		sponsored.POST("/storage/tx", relayHandler.StorageTx)
		sponsored.POST("/did/tx", relayHandler.DIDTx)
		sponsored.POST("/tx/execute", relayHandler.Execute)
		sponsored.POST("/machine/storage/tx", relayHandler.MachineStorageTx)
		sponsored.POST("/machine/did/tx", relayHandler.MachineDIDTx)
		sponsored.POST("/machine/tx/execute", relayHandler.MachineExecute)
		sponsored.POST("/machine/tx/batch", relayHandler.MachineBatch)
		sponsored.POST("/machine/transfer", relayHandler.MachineTransfer)
		sponsored.POST("/machine/sponsor", relayHandler.Sponsor)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/audit", auditHandler.List)
		admin.GET("/clients", clientHandler.List)
		admin.POST("/clients", clientHandler.Create)
		admin.GET("/clients/:id", clientHandler.Get)
		admin.PUT("/clients/:id", clientHandler.Update)
		admin.DELETE("/clients/:id", clientHandler.Delete)
		admin.GET("/clients/:id/secret", middleware.AdminSecretMiddleware(cfg), clientHandler.GetSecret)
		admin.PUT("/clients/:id/key", middleware.AdminSecretMiddleware(cfg), clientHandler.RotateKey)
	}

	// 7. Background cleanup
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go runCleanup(cleanupCtx, time.Duration(cfg.Database.CleanupIntervalMinutes)*time.Minute, cleaners)

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 GasGate started",
			"port", cfg.Server.Port,
			"chain_id", cfg.Chain.ChainID,
			"station", stationAddr.Hex(),
			"owner", owner.Address().Hex(),
			"read_only", cfg.Relay.ReadOnly,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopCleanup()
	hub.Close()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	auditSvc.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}

	logger.Info("Server exiting")
}

type cleanable interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

type cleaner struct {
	name      string
	store     cleanable
	retention time.Duration
}

func runCleanup(ctx context.Context, interval time.Duration, cleaners []cleaner) {
	if interval <= 0 || len(cleaners) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, cl := range cleaners {
				if err := cl.store.Cleanup(ctx, cl.retention); err != nil {
					logger.Warn("cleanup failed", "table", cl.name, "error", err)
				}
			}
		}
	}
}
