// internal/detect/ssh.go
package detect

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
)

// Matches sshd accepted-login lines in the classic syslog format:
//   Jan  2 15:04:05 host sshd[1234]: Accepted password for bob from 1.2.3.4 port 22 ssh2
var sshLoginPattern = regexp.MustCompile(`^(\w+\s+\d+\s+\d+:\d+:\d+)\s+(\S+)\s+sshd\[\d+\]:\s+Accepted\s+(\S+)\s+for\s+(\S+)\s+from\s+(\S+)`)

// SSHDetector scans auth log lines for accepted SSH logins from addresses
// outside the exclusion list.
type SSHDetector struct {
	localIP func() string
	now     func() time.Time
}

func NewSSHDetector() *SSHDetector {
	return &SSHDetector{
		localIP: LocalIP,
		now:     time.Now,
	}
}

// Scan returns one trigger event per accepted login from a non-excluded
// address. Lines that do not match the pattern are ignored.
func (d *SSHDetector) Scan(lines []string, excluded []string) []Event {
	var events []Event
	for _, line := range lines {
		m := sshLoginPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		timestamp, host, method, user, sourceIP := m[1], m[2], m[3], m[4], m[5]

		if IsExcluded(sourceIP, excluded) {
			logrus.WithFields(logrus.Fields{
				"source_ip": sourceIP,
				"user":      user,
			}).Debug("SSH login from excluded address, skipping")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"source_ip": sourceIP,
			"user":      user,
			"method":    method,
			"host":      host,
		}).Info("SSH login detected")

		events = append(events, Event{
			Key:     alert.SSHKey(sourceIP, user),
			Type:    alert.TypeSSH,
			Message: d.formatMessage(sourceIP, user, host, timestamp),
		})
	}
	return events
}

func (d *SSHDetector) formatMessage(sourceIP, user, host, timestamp string) string {
	// Syslog timestamps carry no year; assume the current one.
	when := timestamp
	if parsed, err := time.ParseInLocation("Jan _2 15:04:05 2006",
		fmt.Sprintf("%s %d", timestamp, d.now().Year()), time.Local); err == nil {
		when = parsed.Format("02 Jan 2006 15:04")
	}
	if host == "" {
		host, _ = os.Hostname()
	}
	return fmt.Sprintf("*SSH Connection detected*\n"+
		"Connection from *%s* as *%s* on *%s* (%s)\n"+
		"Date: %s\n"+
		"More information: https://ipinfo.io/%s",
		sourceIP, user, host, d.localIP(), when, sourceIP)
}
