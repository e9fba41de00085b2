package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"credential-ledger/config"
	"credential-ledger/credentials"
	"credential-ledger/db"
	"credential-ledger/governance"
	"credential-ledger/handlers"
	"credential-ledger/ledger"
	"credential-ledger/logger"
	"credential-ledger/metrics"
	"credential-ledger/registry"
	"credential-ledger/repository"
	"credential-ledger/routers"
	"credential-ledger/verifier"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Config file error:", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(cfg.Log.AppLogFile, cfg.Log.Level); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Logger.Info("Starting credential ledger...", zap.String("mode", string(cfg.Governance.Mode)))

	// Connect to LevelDB
	ldb, err := db.NewLevelDB(cfg.LevelDB.Path)
	if err != nil {
		logger.Logger.Fatal("Failed to open leveldb", zap.Error(err))
	}
	defer ldb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Ledger substrate resumes from the stored checkpoint
	stateRepo := repository.NewStateRepository(ldb)
	l, err := ledger.NewLedger(stateRepo, ledger.SystemClock{}, ledger.WithObserver(m.ObserveReceipt))
	if err != nil {
		logger.Logger.Fatal("Failed to open ledger", zap.Error(err))
	}
	head := l.Head()
	logger.Logger.Info("Ledger ready", zap.Uint64("seq", head.Seq), zap.String("head", head.Head.String()))

	issuerRegistry, auth := registry.New(l, cfg.AuthorityHolder())
	creds := credentials.NewLedger(l)
	if err := creds.CheckIndexes(); err != nil {
		logger.Logger.Fatal("Credential indexes are inconsistent", zap.Error(err))
	}
	v := verifier.New(l,
		verifier.WithBatchConcurrency(cfg.Verifier.BatchConcurrency),
		verifier.WithMaxBatchSize(cfg.Verifier.MaxBatchSize),
		verifier.WithObserver(m.ObserveVerdict))

	h := handlers.NewHandler(l, issuerRegistry, creds, v)
	switch cfg.Governance.Mode {
	case config.ModeDAO:
		var opts []governance.Option
		if cfg.Governance.Guardian != "" {
			opts = append(opts, governance.WithGuardian(cfg.Governance.Guardian))
		}
		dao := governance.New(l, issuerRegistry, auth, cfg.Governance.Params, opts...)
		seeded, err := dao.GenesisApplied()
		if err != nil {
			logger.Logger.Fatal("Failed to read voting power", zap.Error(err))
		}
		if !seeded {
			if _, err := dao.Genesis(cfg.Governance.Voters); err != nil {
				logger.Logger.Fatal("Failed to seed voting power", zap.Error(err))
			}
		}
		h.DAO = dao
		logger.Logger.Info("Governance enabled", zap.String("dao", dao.Address().String()))
	case config.ModeAdmin:
		h.Operator = registry.NewOperator(issuerRegistry, auth)
		logger.Logger.Warn("Admin mode: registry is controlled by a single identity",
			zap.String("admin", cfg.Registry.Admin.String()))
	}

	// Setup router
	r := mux.NewRouter()
	routers.RegisterRoutes(r, h)
	routers.RegisterMetrics(r, reg)

	// HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error("Server stopped", zap.Error(err))
		}
	}()

	logger.Logger.Info("Server running on port", zap.Int("port", cfg.Server.Port))

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Logger.Info("Shutdown signal received, exiting...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
