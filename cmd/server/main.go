package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	applicationPort "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/usecase"

	playwrightEngine "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/browser/playwright"
	redisCache "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/cache/redis"
	natsInfra "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/messaging/nats"
	wsInfra "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/notification/websocket"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/observability/cloudwatch"
	dynamodbRepo "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/persistence/dynamodb"
	s3storage "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/storage/s3"

	httpInterface "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/handler"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/middleware"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/config"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting browser rendering service")

	// Browser engine. Disabled leaves the engine nil; render endpoints then
	// answer with the binding-missing error instead of failing startup.
	var engine applicationPort.BrowserEngine
	var engineImpl *playwrightEngine.Engine
	if cfg.Browser.Enabled {
		engineImpl, err = playwrightEngine.NewEngine(playwrightEngine.Config{
			Headless:      cfg.Browser.Headless,
			LaunchTimeout: cfg.Browser.LaunchTimeout,
		}, log.With("component", "browser"))
		if err != nil {
			log.Error("Failed to initialize browser engine", err)
			os.Exit(1)
		}
		engine = engineImpl
		log.Info("Browser engine initialized", "headless", cfg.Browser.Headless)
	} else {
		log.Warn("Browser engine is disabled, render endpoints will report it missing")
	}

	var cache applicationPort.ArtifactCache
	var cacheImpl *redisCache.ArtifactCache
	if cfg.Cache.Enabled {
		cacheImpl, err = redisCache.NewArtifactCache(redisCache.Config{
			Host:         cfg.Cache.Host,
			Port:         cfg.Cache.Port,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			PoolSize:     cfg.Cache.PoolSize,
			MinIdleConns: cfg.Cache.MinIdleConns,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
		})
		if err != nil {
			log.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		cache = cacheImpl
		log.Info("Artifact cache connected", "host", cfg.Cache.Host, "ttl", cfg.Cache.ArtifactTTL.String())
	} else {
		log.Warn("Artifact cache is disabled, screenshot captures will report it missing")
	}

	var archive applicationPort.ArtifactArchive
	var archiveMeta applicationPort.ArchiveMetadataRepository
	if cfg.Archive.Enabled {
		archiveImpl, initErr := s3storage.NewArtifactArchive(context.Background(), s3storage.Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
			UsePathStyle:    cfg.Archive.UsePathStyle,
			PresignedTTL:    cfg.Archive.PresignedTTL,
		})
		if initErr != nil {
			log.Error("Failed to initialize artifact archive", initErr)
			os.Exit(1)
		}
		archive = archiveImpl

		if cfg.Archive.DynamoTable != "" {
			repoImpl, initErr := dynamodbRepo.NewArchiveMetadataRepository(context.Background(), dynamodbRepo.Config{
				TableName:       cfg.Archive.DynamoTable,
				Region:          cfg.Archive.Region,
				Endpoint:        cfg.Archive.DynamoEndpoint,
				AccessKeyID:     cfg.Archive.AccessKeyID,
				SecretAccessKey: cfg.Archive.SecretAccessKey,
			})
			if initErr != nil {
				log.Error("Failed to initialize archive metadata repository", initErr)
				os.Exit(1)
			}
			archiveMeta = repoImpl
		}
		log.Info("Artifact archive initialized", "bucket", cfg.Archive.Bucket)
	} else {
		log.Warn("Artifact archive is disabled")
	}

	var eventPublisher applicationPort.EventPublisher
	if cfg.Events.Enabled {
		publisherImpl, initErr := natsInfra.NewCaptureEventPublisher(cfg.Events.NATSURL, log.With("component", "events"))
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.Events.NATSURL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	var metricsPublisher applicationPort.MetricsPublisher
	if cfg.Observability.CloudWatchEnabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(context.Background(), cloudwatch.Config{
			Namespace:       cfg.Observability.Namespace,
			Region:          cfg.Observability.Region,
			Endpoint:        cfg.Observability.Endpoint,
			AccessKeyID:     cfg.Observability.AccessKeyID,
			SecretAccessKey: cfg.Observability.SecretAccessKey,
			FlushInterval:   cfg.Observability.FlushInterval,
		})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized", "namespace", cfg.Observability.Namespace)
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	hub := wsInfra.NewHub(log.With("component", "hub"))

	captureUC := usecase.NewCaptureScreenshotUseCase(
		engine,
		cache,
		usecase.CaptureScreenshotConfig{
			PublicBaseURL: cfg.Server.PublicBaseURL,
			ArtifactTTL:   cfg.Cache.ArtifactTTL,
		},
		log,
	).
		WithArchive(archive, archiveMeta).
		WithObservers(eventPublisher, metricsPublisher, hub)

	renderUC := usecase.NewRenderContentUseCase(engine, log)
	getArtifactUC := usecase.NewGetArtifactUseCase(cache, cfg.Cache.ArtifactTTL, log)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	contentHandler := handler.NewContentHandler(renderUC, log)
	screenshotHandler := handler.NewScreenshotHandler(captureUC, log)
	imageHandler := handler.NewImageHandler(getArtifactUC, log)
	statusHandler := handler.NewStatusHandler(handler.Subsystems{
		Browser: engine != nil,
		Cache:   cache != nil,
		Archive: archive != nil,
		Events:  eventPublisher != nil,
		Metrics: metricsPublisher != nil,
	}, hub, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log)

	router := httpInterface.NewRouter(
		contentHandler,
		screenshotHandler,
		imageHandler,
		statusHandler,
		websocketHandler,
		cfg.Security,
		log,
	)

	go hub.Run()
	log.Info("WebSocket hub started")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", err)
	}

	if metricsPublisher != nil {
		if err := metricsPublisher.Close(); err != nil {
			log.Error("Metrics publisher shutdown failed", err)
		}
	}
	if engineImpl != nil {
		if err := engineImpl.Shutdown(); err != nil {
			log.Error("Browser engine shutdown failed", err)
		}
	}
	if cacheImpl != nil {
		if err := cacheImpl.Close(); err != nil {
			log.Error("Artifact cache shutdown failed", err)
		}
	}

	log.Info("Shutdown complete")
}
