// internal/alert/dispatcher.go - Dedup/reminder/recovery state machine
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/config"
	"hostsentry/internal/metrics"
)

// Notifier delivers one text message to the configured destination.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Recorder archives delivered notifications. Optional; failures to record
// never block alerting.
type Recorder interface {
	Record(key string, typ Type, message string, recovery bool, at time.Time)
}

// Publisher pushes alert lifecycle events to live observers. Optional.
type Publisher interface {
	PublishAlertEvent(key string, typ Type, message string, recovery bool)
}

const (
	deliveryAttempts = 3
	deliveryBackoff  = 2 * time.Second
)

// Dispatcher owns the alert lifecycle: it consults the ledger and the
// per-type settings, decides whether a trigger becomes a notification, a
// reminder, or a suppression, and removes records on recovery. It is
// driven by a single scheduler goroutine; UpdateConfig may be called from
// another goroutine, hence the mutex.
type Dispatcher struct {
	ledger    *Ledger
	notifier  Notifier
	recorder  Recorder
	publisher Publisher

	mu  sync.RWMutex
	cfg *config.Config

	now     func() time.Time
	backoff time.Duration
}

func NewDispatcher(ledger *Ledger, notifier Notifier, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		backoff:  deliveryBackoff,
	}
}

// SetRecorder attaches a notification history archive.
func (d *Dispatcher) SetRecorder(r Recorder) { d.recorder = r }

// SetPublisher attaches a live event stream.
func (d *Dispatcher) SetPublisher(p Publisher) { d.publisher = p }

// UpdateConfig swaps in a freshly loaded settings snapshot. The scheduler
// calls this at the start of every cycle so operator changes take effect
// within one tick.
func (d *Dispatcher) UpdateConfig(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

func (d *Dispatcher) config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Trigger processes a detector's signal that a condition is true. It
// returns whether a notification was actually delivered. The ledger
// mutation always happens before delivery and is never rolled back on
// delivery failure.
func (d *Dispatcher) Trigger(ctx context.Context, key string, typ Type, message string, force bool) (bool, error) {
	settings := d.config().SettingsFor(string(typ))
	if !settings.Enabled {
		logrus.WithFields(logrus.Fields{
			"key":  key,
			"type": typ,
		}).Debug("Alert type disabled, skipping trigger")
		return false, nil
	}

	now := d.now()
	records := d.ledger.Load()
	record, active := records[key]

	switch {
	case !active:
		record = Record{
			Type:             typ,
			Message:          message,
			StartTime:        now.Unix(),
			LastNotification: now.Unix(),
		}
		records[key] = record

	case !force:
		if settings.ReminderInterval == 0 {
			logrus.WithFields(logrus.Fields{
				"key":  key,
				"type": typ,
			}).Debug("Reminders disabled for alert type, suppressing")
			return false, nil
		}
		elapsed := now.Unix() - record.LastNotification
		if elapsed < settings.ReminderInterval {
			logrus.WithFields(logrus.Fields{
				"key":             key,
				"next_reminder_s": settings.ReminderInterval - elapsed,
			}).Debug("Alert already active, reminder not due yet")
			return false, nil
		}
		record.ReminderCount++
		record.LastNotification = now.Unix()
		records[key] = record
		message = fmt.Sprintf("🔄 REMINDER (%d) - %s", record.ReminderCount, message)

	default:
		record.ReminderCount++
		record.LastNotification = now.Unix()
		records[key] = record
		message = fmt.Sprintf("🔄 REMINDER (%d) - %s", record.ReminderCount, message)
	}

	if err := d.ledger.Save(records); err != nil {
		// In-memory state still drives this cycle's decision; the next
		// cycle re-derives from whatever was last durably written.
		logrus.WithError(err).WithField("key", key).Error("Failed to persist alert ledger")
	}
	metrics.ActiveAlerts.Set(float64(len(records)))

	if err := d.deliver(ctx, typ, message); err != nil {
		return false, err
	}

	if d.recorder != nil {
		d.recorder.Record(key, typ, message, false, now)
	}
	if d.publisher != nil {
		d.publisher.PublishAlertEvent(key, typ, message, false)
	}
	return true, nil
}

// Clear processes a recovery signal. The record is always removed from
// the ledger; the stored type's notify_recovery setting gates only the
// notification, so disabling a type can never strand an active record.
func (d *Dispatcher) Clear(ctx context.Context, key string, customMessage string) (bool, error) {
	now := d.now()
	records := d.ledger.Load()
	record, active := records[key]
	if !active {
		logrus.WithField("key", key).Debug("No active alert to recover")
		return false, nil
	}

	delete(records, key)
	if err := d.ledger.Save(records); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to persist alert ledger")
	}
	metrics.ActiveAlerts.Set(float64(len(records)))

	// Settings are looked up by the record's own stored type, not the
	// caller's, so recoveries stay consistent with how the alert was
	// originally classified.
	settings := d.config().SettingsFor(string(record.Type))
	if !settings.NotifyRecovery {
		logrus.WithFields(logrus.Fields{
			"key":  key,
			"type": record.Type,
		}).Debug("Recovery notifications disabled, record removed silently")
		return false, nil
	}

	message := record.Message
	if customMessage != "" {
		message = customMessage
	}
	elapsed := now.Unix() - record.StartTime
	text := fmt.Sprintf("✅ RISOLTO - %s (durata: %s)", message, formatElapsed(elapsed))

	if err := d.deliver(ctx, record.Type, text); err != nil {
		return false, err
	}

	if d.recorder != nil {
		d.recorder.Record(key, record.Type, text, true, now)
	}
	if d.publisher != nil {
		d.publisher.PublishAlertEvent(key, record.Type, text, true)
	}
	return true, nil
}

// Active returns a snapshot of the ledger for read-only surfaces.
func (d *Dispatcher) Active() map[string]Record {
	return d.ledger.Load()
}

// deliver attempts the notification up to deliveryAttempts times with a
// fixed backoff. Exhausting all attempts surfaces the last error but the
// ledger mutation already made stands.
func (d *Dispatcher) deliver(ctx context.Context, typ Type, text string) error {
	var lastErr error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if err := d.notifier.Send(ctx, text); err != nil {
			lastErr = err
			logrus.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"of":      deliveryAttempts,
			}).Warn("Notification delivery failed")
			if attempt < deliveryAttempts {
				select {
				case <-time.After(d.backoff):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(typ), "success").Inc()
		return nil
	}
	metrics.NotificationsTotal.WithLabelValues(string(typ), "error").Inc()
	return fmt.Errorf("delivery failed after %d attempts: %w", deliveryAttempts, lastErr)
}

// formatElapsed renders seconds as the compact XhYmZs recovery duration.
func formatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	out := ""
	if hours > 0 {
		out += fmt.Sprintf("%dh ", hours)
	}
	if minutes > 0 || hours > 0 {
		out += fmt.Sprintf("%dm ", minutes)
	}
	out += fmt.Sprintf("%ds", secs)
	return out
}
