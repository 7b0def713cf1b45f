// internal/monitor/scheduler.go - periodic detection loop
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
	"hostsentry/internal/config"
	"hostsentry/internal/detect"
	"hostsentry/internal/metrics"
)

// Give the uptime source a moment to settle before seeding the reboot
// baseline, so a daemon started right after boot does not alert on itself.
const startupGrace = 2 * time.Second

// Scheduler drives the detectors on a fixed tick and feeds their events to
// the dispatcher. Each detector runs at its own cadence; a failing detector
// never stops the loop.
type Scheduler struct {
	configPath string
	cfg        *config.Config
	dispatcher *alert.Dispatcher

	ssh          *detect.SSHDetector
	connectivity *detect.ConnectivityDetector
	reboot       *detect.RebootDetector
	tailer       *detect.Tailer
	checkpoint   *detect.Checkpoint
	offset       int64

	lastSSHCheck      time.Time
	lastInternetCheck time.Time
	grace             time.Duration
}

func NewScheduler(configPath string, cfg *config.Config, dispatcher *alert.Dispatcher) *Scheduler {
	checkpoint := detect.NewCheckpoint(cfg.Monitoring.CheckpointPath)
	return &Scheduler{
		configPath:   configPath,
		cfg:          cfg,
		dispatcher:   dispatcher,
		ssh:          detect.NewSSHDetector(),
		connectivity: detect.NewConnectivityDetector(),
		reboot:       detect.NewRebootDetector(cfg.Monitoring.UptimePath, cfg.Monitoring.UptimeFallbackPath),
		tailer:       detect.NewTailer(cfg.Monitoring.AuthLogPath),
		checkpoint:   checkpoint,
		offset:       checkpoint.Load(),
		grace:        startupGrace,
	}
}

// Run executes detection cycles until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"tick_interval":           s.cfg.Monitoring.TickInterval,
		"ssh_check_interval":      s.cfg.Monitoring.SSHCheckInterval,
		"internet_check_interval": s.cfg.Monitoring.InternetCheckInterval,
	}).Info("Monitoring scheduler started")

	select {
	case <-time.After(s.grace):
	case <-ctx.Done():
		return ctx.Err()
	}
	s.reboot.Seed()

	ticker := time.NewTicker(s.cfg.Monitoring.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Monitoring scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	metrics.CyclesTotal.Inc()
	s.reloadConfig()

	s.checkReboot(ctx)

	now := time.Now()
	if now.Sub(s.lastInternetCheck) >= s.cfg.Monitoring.InternetCheckInterval {
		s.lastInternetCheck = now
		s.checkConnectivity(ctx)
	}
	if s.cfg.SSHAlertsEnabled() && now.Sub(s.lastSSHCheck) >= s.cfg.Monitoring.SSHCheckInterval {
		s.lastSSHCheck = now
		s.checkSSH(ctx)
	}

	metrics.ActiveAlerts.Set(float64(len(s.dispatcher.Active())))
}

// reloadConfig picks up edits to the config file between cycles. A broken
// file keeps the previous configuration in effect.
func (s *Scheduler) reloadConfig() {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		logrus.WithError(err).Warn("Config reload failed, keeping previous configuration")
		return
	}
	s.cfg = cfg
	s.dispatcher.UpdateConfig(cfg)
}

func (s *Scheduler) checkReboot(ctx context.Context) {
	ev := s.reboot.Check()
	if ev == nil {
		return
	}
	if !s.cfg.RebootAlertsEnabled() {
		logrus.Debug("Reboot detected but reboot alerts are disabled")
		return
	}
	s.handleEvent(ctx, "reboot", ev)
}

func (s *Scheduler) checkConnectivity(ctx context.Context) {
	if ev := s.connectivity.Check(); ev != nil {
		s.handleEvent(ctx, "connectivity", ev)
	}
}

func (s *Scheduler) checkSSH(ctx context.Context) {
	lines, newOffset, err := s.tailer.ReadNew(s.offset)
	if err != nil {
		if errors.Is(err, detect.ErrSourceUnavailable) {
			logrus.WithField("path", s.cfg.Monitoring.AuthLogPath).Debug("Auth log unavailable, skipping SSH check")
		} else {
			logrus.WithError(err).Error("Failed to read auth log")
			metrics.CycleErrorsTotal.WithLabelValues("ssh").Inc()
		}
		return
	}

	// Persist the checkpoint before dispatching so a crash mid-batch never
	// replays already-consumed lines.
	if newOffset != s.offset {
		s.offset = newOffset
		if err := s.checkpoint.Save(newOffset); err != nil {
			logrus.WithError(err).Error("Failed to persist auth log checkpoint")
			metrics.CycleErrorsTotal.WithLabelValues("ssh").Inc()
		}
	}

	for _, ev := range s.ssh.Scan(lines, s.cfg.ExcludedIPs) {
		event := ev
		s.handleEvent(ctx, "ssh", &event)
	}
}

func (s *Scheduler) handleEvent(ctx context.Context, detector string, ev *detect.Event) {
	metrics.RecordEvent(string(ev.Type), ev.Clear)

	var err error
	if ev.Clear {
		_, err = s.dispatcher.Clear(ctx, ev.Key, ev.ClearMessage)
	} else {
		_, err = s.dispatcher.Trigger(ctx, ev.Key, ev.Type, ev.Message, ev.Force)
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"detector": detector,
			"key":      ev.Key,
		}).Error("Failed to dispatch event")
		metrics.CycleErrorsTotal.WithLabelValues(detector).Inc()
	}
}
