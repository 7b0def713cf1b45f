// internal/web/handlers.go
package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"hostsentry/internal/config"
)

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		logrus.WithError(err).Error("Failed to load config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load config"})
		return
	}

	// Never expose the bot token through the API.
	redacted := *cfg
	redacted.Telegram.BotToken = ""
	c.JSON(http.StatusOK, gin.H{"data": redacted})
}

func (s *Server) updateConfig(c *gin.Context) {
	var req config.Config
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// An empty token in the request means "keep the current one", matching
	// getConfig's redaction.
	if req.Telegram.BotToken == "" {
		if current, err := config.Load(s.configPath); err == nil {
			req.Telegram.BotToken = current.Telegram.BotToken
		}
	}

	// Never persist a config that Load would reject: the scheduler reloads
	// this file every cycle and main refuses to start on an invalid one.
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.Save(s.configPath); err != nil {
		logrus.WithError(err).Error("Failed to save config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save config"})
		return
	}

	s.setConfig(&req)
	s.dispatcher.UpdateConfig(&req)

	logrus.Info("Configuration updated via API")
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

func (s *Server) getAlerts(c *gin.Context) {
	active := s.dispatcher.Active()
	c.JSON(http.StatusOK, gin.H{
		"data":  active,
		"count": len(active),
	})
}

func (s *Server) getHistory(c *gin.Context) {
	limit := 100
	if v, ok := c.GetQuery("limit"); ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.historyDB.Recent(limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to read notification history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  entries,
		"count": len(entries),
	})
}

func (s *Server) getResources(c *gin.Context) {
	kind := c.Param("kind")

	cfg := s.currentConfig()

	var (
		text string
		err  error
	)
	switch kind {
	case "cpu":
		text, err = s.reporter.CPU()
	case "memory":
		text, err = s.reporter.Memory()
	case "disk":
		text, err = s.reporter.Disk(cfg.MountPoints)
	case "network":
		text, err = s.reporter.Network()
	case "processes":
		text, err = s.reporter.Processes(cfg.TopProcesses)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown resource kind, expected cpu|memory|disk|network|processes"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("kind", kind).Error("Failed to build resource report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read resources"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"kind": kind, "report": text}})
}

func (s *Server) testNotification(c *gin.Context) {
	if err := s.telegram.TestConnection(c.Request.Context()); err != nil {
		logrus.WithError(err).Error("Test notification failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

type powerRequest struct {
	Action  string `json:"action" binding:"required"`
	Confirm bool   `json:"confirm"`
}

func (s *Server) powerAction(c *gin.Context) {
	var req powerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirm flag is required for power actions"})
		return
	}

	switch req.Action {
	case "reboot":
		logrus.Warn("Host reboot requested via API")
		s.power.Reboot()
	case "poweroff":
		logrus.Warn("Host poweroff requested via API")
		s.power.Poweroff()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action, expected reboot|poweroff"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "scheduled", "action": req.Action})
}
