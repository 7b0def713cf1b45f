// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
	"hostsentry/internal/config"
	"hostsentry/internal/history"
	"hostsentry/internal/notify"
	"hostsentry/internal/power"
	"hostsentry/internal/report"
)

type Server struct {
	configPath string
	cfgMu      sync.RWMutex
	config     *config.Config
	dispatcher *alert.Dispatcher
	historyDB  *history.Store
	telegram   *notify.TelegramClient
	reporter   *report.Reporter
	power      *power.Executor
	router     *gin.Engine
	server     *http.Server

	wsMu      sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(configPath string, cfg *config.Config, dispatcher *alert.Dispatcher, historyDB *history.Store, telegram *notify.TelegramClient) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		configPath: configPath,
		config:     cfg,
		dispatcher: dispatcher,
		historyDB:  historyDB,
		telegram:   telegram,
		reporter:   report.NewReporter(),
		power:      power.NewExecutor(),
		router:     router,
		wsClients:  make(map[*WSClient]bool),
	}

	server.setupRoutes()
	return server
}

// currentConfig returns the latest settings snapshot. The updateConfig
// handler swaps the pointer under cfgMu; readers must come through here.
func (s *Server) currentConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.config
}

func (s *Server) setConfig(cfg *config.Config) {
	s.cfgMu.Lock()
	s.config = cfg
	s.cfgMu.Unlock()
}

func (s *Server) Start(ctx context.Context) error {
	cfg := s.currentConfig()
	s.server = &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logrus.WithField("port", cfg.Server.Port).Info("Starting web server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/config", s.getConfig)
		api.PUT("/config", s.updateConfig)

		api.GET("/alerts", s.getAlerts)
		api.GET("/history", s.getHistory)
		api.GET("/resources/:kind", s.getResources)

		api.POST("/test-notification", s.testNotification)
		api.POST("/power", s.powerAction)

		api.GET("/health", s.healthCheck)
	}

	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     time.Now(),
		"active_alerts": len(s.dispatcher.Active()),
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
