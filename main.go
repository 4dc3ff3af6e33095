package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"focuswatch/api"
	"focuswatch/config"
	"focuswatch/handlers"
	"focuswatch/internal/database"
	"focuswatch/services/executor"
	"focuswatch/services/focus"
	"focuswatch/services/kodi"
	"focuswatch/services/metadata"
	"focuswatch/services/scheduler"
	"focuswatch/services/trailer"
	"focuswatch/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "settings.json", "path to settings file")
	listenAddr := flag.String("listen", ":7474", "admin API listen address")
	flag.Parse()

	manager := config.NewManager(*configPath)
	settings, err := manager.Load()
	if err != nil {
		log.Fatalf("[main] load settings: %v", err)
	}

	if settings.Logging.Path != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.Logging.Path,
			MaxSize:    settings.Logging.MaxSizeMB,
			MaxBackups: settings.Logging.MaxBackups,
			MaxAge:     settings.Logging.MaxAgeDays,
		}))
	}
	log.Printf("[main] focuswatch %s starting", version)

	db, err := database.NewDB(database.Config{
		DatabasePath: settings.Cache.DatabasePath,
		TTLs: map[database.Namespace]time.Duration{
			database.NamespaceIDResolution: settings.Cache.IDResolution.D(),
			database.NamespaceTrailerURL:   settings.Cache.TrailerURL.D(),
			database.NamespaceRatings:      settings.Cache.Ratings.D(),
			database.NamespaceReviews:      settings.Cache.Reviews.D(),
		},
	})
	if err != nil {
		log.Fatalf("[main] open cache database: %v", err)
	}
	defer db.Close()

	kodiClient := kodi.NewClient(
		settings.Kodi.Endpoint,
		settings.Kodi.Username,
		settings.Kodi.Password,
		nil,
	)

	providerHTTP := &http.Client{Timeout: settings.Providers.RequestTimeout.D()}
	providers := metadata.NewProviders(
		db.Cache,
		settings.Providers.TMDBAPIKey,
		settings.Providers.MDBListAPIKey,
		settings.Providers.TraktClientID,
		providerHTTP,
	)

	ctrl := focus.NewController(nil)
	delays := focus.NewDelayScheduler(settings.Poller)

	metadataService := metadata.NewService(providers, metadata.NewPropertyWriter(kodiClient), ctrl)

	resolutionExec := executor.New("trailer-resolution", settings.Executors.ResolutionWorkers, settings.Executors.ResolutionQueue)
	playbackExec := executor.New("playback", settings.Executors.PlaybackWorkers, settings.Executors.PlaybackQueue)
	sniperExec := executor.New("sniper", settings.Executors.SniperWorkers, settings.Executors.SniperQueue)

	trailerService := trailer.NewService(
		providers,
		kodiClient,
		kodiClient,
		ctrl,
		nil,
		settings.Trailer,
		resolutionExec,
		playbackExec,
		sniperExec,
	)

	poller := focus.NewPoller(
		kodiClient,
		ctrl,
		delays,
		metadataService,
		trailerService,
		nil,
		settings.Poller,
		settings.Trailer.Enabled,
	)
	if err := poller.Start(context.Background()); err != nil {
		log.Fatalf("[main] start poller: %v", err)
	}

	maintenance := scheduler.NewService(db.Cache, 6*time.Hour)
	if err := maintenance.Start(context.Background()); err != nil {
		log.Fatalf("[main] start scheduler: %v", err)
	}

	router := utils.NewRouter()

	statusHandler := &handlers.StatusHandler{
		Sessions:  ctrl,
		Trailer:   trailerService,
		Cache:     db.Cache,
		StartedAt: time.Now(),
		Version:   version,
	}
	settingsHandler := handlers.NewSettingsHandler(manager)
	cacheHandler := handlers.NewCacheHandler(db.Cache)

	// Mutations are rate limited per client IP; reads are not.
	writeLimiter := api.NewIPRateLimiter(rate.Every(time.Second), 5)

	router.HandleFunc("/api/status", statusHandler.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/settings", settingsHandler.GetSettings).Methods(http.MethodGet)
	router.HandleFunc("/api/settings", api.RateLimitHandlerFunc(writeLimiter, settingsHandler.PutSettings)).Methods(http.MethodPut)
	router.HandleFunc("/api/cache/clear", api.RateLimitHandlerFunc(writeLimiter, cacheHandler.ClearCache)).Methods(http.MethodPost)

	server := &http.Server{
		Addr:         *listenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[main] admin API listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] admin API: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] admin API shutdown: %v", err)
	}
	if err := poller.Stop(shutdownCtx); err != nil {
		log.Printf("[main] poller stop: %v", err)
	}
	if err := maintenance.Stop(shutdownCtx); err != nil {
		log.Printf("[main] scheduler stop: %v", err)
	}
	trailerService.Interrupt()

	resolutionExec.Shutdown()
	playbackExec.Shutdown()
	sniperExec.Shutdown()

	log.Println("[main] stopped")
}
