package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	stdsync "sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"manhwahub/internal/cache"
	"manhwahub/internal/catalog"
	"manhwahub/internal/library"
	"manhwahub/internal/recommend"
	"manhwahub/internal/session"
	"manhwahub/internal/suggest"
	synchub "manhwahub/internal/sync"
	"manhwahub/pkg/database"
	"manhwahub/pkg/logging"
	"manhwahub/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		panic(err)
	}
	root := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	dbCfg := database.DefaultConfig(cfg.DB.Path)
	db, err := database.Open(dbCfg)
	if err != nil {
		root.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		root.Fatal().Err(err).Msg("db migrate")
	}

	deviceScope, err := library.DeviceScope(context.Background(), db)
	if err != nil {
		root.Fatal().Err(err).Msg("resolve device scope")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Event feed first, so binding errors surface early
	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub, logging.Component(root, "ws")))
	tcpSrv := synchub.NewServer(cfg.TCPAddr, hub, logging.Component(root, "tcp-feed"))

	// Catalog provider per config
	var provider catalog.Provider
	switch strings.ToLower(cfg.Catalog.Provider) {
	case "comick":
		provider = catalog.NewComickProvider(cfg.Catalog.ComickURL, cfg.Catalog.PageSize)
	default:
		provider = catalog.NewAniListProvider(cfg.Catalog.AniListURL, cfg.Catalog.PageSize)
	}
	catalogClient := catalog.NewClient(provider, logging.Component(root, "catalog"))

	// Library store over local sqlite, bound to the device scope at start
	store := library.NewStore(hub, logging.Component(root, "library"))
	localBackend := library.NewLocalBackend(db)

	// Cloud sync is optional: without a configured project the session
	// manager only ever runs local mode.
	var auth *session.Authenticator
	var newCloud func(string) library.Backend
	if cfg.Cloud.URL != "" && cfg.Cloud.AnonKey != "" {
		auth = session.NewAuthenticator(cfg.Cloud.URL, cfg.Cloud.AnonKey, logging.Component(root, "auth"))
		newCloud = func(token string) library.Backend {
			return library.NewCloudBackend(cfg.Cloud.URL, cfg.Cloud.AnonKey, token, cfg.Cloud.Table, logging.Component(root, "cloud"))
		}
	}

	sessions := session.NewManager(auth, store, localBackend, newCloud, logging.Component(root, "session"))
	titleCache := cache.NewTitleCache(5 * time.Minute)
	sessions.OnTransition = func(scope string) {
		// a transition starts a fresh browsing session for that scope
		titleCache.Invalidate(scope)
	}
	sessions.StartLocal(context.Background(), deviceScope)

	suggester := suggest.New(suggest.Config{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.Model,
	}, logging.Component(root, "suggest"))
	resolver := recommend.NewResolver(suggester, catalogClient, logging.Component(root, "recommend"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbCfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"cloud":       sessions.CloudEnabled(),
			"ai":          suggester.Enabled(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	catalog.NewHandler(catalogClient, titleCache, sessions.Scope, logging.Component(root, "catalog-http")).
		RegisterRoutes(router.Group("/catalog"))
	library.NewHandler(store).RegisterRoutes(router.Group("/library"))
	recommend.NewHandler(resolver, store).RegisterRoutes(router.Group("/recommendations"))
	session.NewHandler(sessions, deviceScope).RegisterRoutes(router.Group("/session"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg stdsync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		root.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		root.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		root.Error().Err(err).Msg("server error")
	}

	root.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		root.Error().Err(err).Msg("http shutdown")
	}
	if err := tcpSrv.Close(); err != nil {
		root.Error().Err(err).Msg("tcp shutdown")
	}

	wg.Wait()
	root.Info().Msg("servers stopped")
}
