package main

import (
	"log"

	"menuboard/config"
	"menuboard/internal/domain"
	"menuboard/internal/service"
	"menuboard/internal/storage"

	httpapi "menuboard/internal/api/http"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	mode := domain.SourceMode(cfg.SourceMode)
	if mode != domain.ModeEmbeddedLocal && mode != domain.ModeCloudRemote {
		logger.Fatalw("unknown source mode", "mode", cfg.SourceMode)
	}

	rdb := config.MustInitRedis(cfg)
	cache := storage.NewMenuCache(rdb)

	session := service.NewSession(mode, cfg.CloudEndpointURL, cfg.CloudAccessKey, logger)
	defer session.Close()

	// the cloud backend serves reads in remote mode and sync pushes in
	// both modes, so it is built whenever credentials are present
	var cloud *storage.CloudBackend
	if db, err := config.InitCloudPostgres(cfg); err != nil {
		if mode == domain.ModeCloudRemote {
			logger.Fatalw("cloud backend init failed", "error", err)
		}
		logger.Warnw("cloud backend unavailable, sync disabled", "error", err)
	} else {
		cloud = storage.NewCloudBackend(db, []string{cfg.KafkaBroker}, cfg.KafkaTopic, cfg.KafkaGroupID, logger)
	}

	var local *storage.RuntimeDB
	if mode == domain.ModeEmbeddedLocal {
		local, err = storage.OpenRuntimeDB(cfg.RuntimeDBPath)
		if err != nil {
			logger.Fatalw("embedded runtime store open failed", "error", err)
		}
		defer local.Close()
	}

	var gateway service.CloudGateway
	if cloud != nil {
		gateway = cloud
	}
	var provider service.LocalProvider
	if local != nil {
		provider = local
	}

	reconciler := service.NewSourceReconciler(session, cache, gateway, provider, logger)
	go reconciler.Resolve(session.Context())

	engine := service.NewSyncEngine(session, gateway, logger)

	handler := httpapi.NewHandler(reconciler, engine, service.DefaultQRGenerator{MenuURL: cfg.PublicMenuURL})
	if local != nil {
		handler.Local = local
	}

	if mode == domain.ModeCloudRemote && cloud != nil {
		notifier := service.NewChangeNotifier(session, cloud, logger)
		handle := notifier.Start(func() {
			reconciler.Resolve(session.Context())
		})
		defer handle.Stop()
		handler.Notifier = notifier
	}

	httpapi.StartServer(cfg.HTTPAddr, httpapi.NewRouter(handler))
}
