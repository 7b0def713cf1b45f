// internal/power/power.go - host reboot/poweroff executor
package power

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Delay before executing so the API response and the notification get
	// out before the host goes down.
	actionDelay    = 3 * time.Second
	commandTimeout = 10 * time.Second
)

// Ordered fallback lists; the first command that exits 0 wins.
var (
	rebootCommands = [][]string{
		{"reboot", "now"},
		{"/sbin/reboot", "now"},
		{"systemctl", "reboot"},
		{"shutdown", "-r", "now"},
	}
	poweroffCommands = [][]string{
		{"poweroff"},
		{"/sbin/poweroff"},
		{"shutdown", "-h", "now"},
		{"systemctl", "poweroff"},
		{"halt", "-p"},
	}
)

// Executor runs host power actions. runCommand is injectable for tests.
type Executor struct {
	delay      time.Duration
	runCommand func(ctx context.Context, name string, args ...string) error
}

func NewExecutor() *Executor {
	return &Executor{
		delay: actionDelay,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			ctx, cancel := context.WithTimeout(ctx, commandTimeout)
			defer cancel()
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
			}
			return nil
		},
	}
}

// Reboot schedules a host reboot after a short delay.
func (e *Executor) Reboot() {
	go e.execute("reboot", rebootCommands)
}

// Poweroff schedules a host shutdown after a short delay.
func (e *Executor) Poweroff() {
	go e.execute("poweroff", poweroffCommands)
}

func (e *Executor) execute(action string, commands [][]string) {
	time.Sleep(e.delay)

	for _, cmd := range commands {
		logrus.WithFields(logrus.Fields{
			"action":  action,
			"command": strings.Join(cmd, " "),
		}).Info("Attempting power action")

		if err := e.runCommand(context.Background(), cmd[0], cmd[1:]...); err != nil {
			logrus.WithError(err).WithField("command", strings.Join(cmd, " ")).Warn("Power command failed")
			continue
		}
		logrus.WithField("action", action).Info("Power command executed successfully")
		return
	}
	logrus.WithField("action", action).Error("All power commands failed")
}
