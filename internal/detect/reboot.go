// internal/detect/reboot.go
package detect

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
)

// An uptime at or below this many seconds on the previous reading means the
// baseline never settled (first read after start, or unreadable uptime
// source), so a drop from it is not evidence of a reboot.
const rebootBaselineFloor = 10

// RebootDetector watches host uptime for a drop, which means the machine
// restarted between two readings.
type RebootDetector struct {
	primaryPath  string
	fallbackPath string
	localIP      func() string

	prev float64
}

func NewRebootDetector(primaryPath, fallbackPath string) *RebootDetector {
	return &RebootDetector{
		primaryPath:  primaryPath,
		fallbackPath: fallbackPath,
		localIP:      LocalIP,
	}
}

// ReadUptime returns the host uptime in seconds, trying the primary path
// first and the fallback second (the fallback covers a containerized daemon
// with the host's /proc bind-mounted). Returns 0 when neither is readable.
func (d *RebootDetector) ReadUptime() float64 {
	for _, path := range []string{d.primaryPath, d.fallbackPath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fields := strings.Fields(string(data))
		if len(fields) == 0 {
			continue
		}
		uptime, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			logrus.WithError(err).WithField("path", path).Warn("Unparsable uptime value")
			continue
		}
		return uptime
	}
	return 0
}

// Seed records the current uptime as the comparison baseline without
// producing an event.
func (d *RebootDetector) Seed() {
	d.prev = d.ReadUptime()
	logrus.WithField("uptime_seconds", d.prev).Debug("Uptime baseline seeded")
}

// Check compares the current uptime against the previous reading and returns
// a forced trigger event when it dropped. The baseline is updated on every
// call, so a single reboot produces exactly one event.
func (d *RebootDetector) Check() *Event {
	current := d.ReadUptime()
	prev := d.prev
	d.prev = current

	if current >= prev || prev <= rebootBaselineFloor {
		return nil
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	logrus.WithFields(logrus.Fields{
		"previous_uptime": prev,
		"current_uptime":  current,
		"hostname":        hostname,
	}).Warn("Server reboot detected")

	return &Event{
		Key:   alert.KeyReboot,
		Type:  alert.TypeReboot,
		Force: true,
		Message: fmt.Sprintf("🔄 *Server riavviato*\n\n"+
			"Hostname: *%s* (%s)\n"+
			"Uptime attuale: %s",
			hostname, d.localIP(), FormatUptime(current)),
	}
}
