// internal/alert/models.go
package alert

import (
	"fmt"
	"hash/fnv"
)

// Type classifies an alert and selects which settings apply to it.
type Type string

const (
	TypeSSH      Type = "ssh"
	TypeInternet Type = "internet"
	TypeReboot   Type = "reboot"
	TypeGeneric  Type = "generic"
)

// Well-known alert keys for singleton conditions.
const (
	KeyInternetConnection = "internet_connection"
	KeyReboot             = "reboot"
)

// Record is one active alert as persisted in the ledger. A key exists in
// the ledger iff its condition is still considered active.
type Record struct {
	Type             Type   `json:"type"`
	Message          string `json:"message"`
	StartTime        int64  `json:"start_time"`
	LastNotification int64  `json:"last_notification"`
	ReminderCount    int    `json:"reminder_count"`
}

// SSHKey derives a stable alert key from the login's source IP and
// username, so that repeated logins by the same principal dedup into
// reminders instead of spawning a new alert per log line.
func SSHKey(ip, user string) string {
	h := fnv.New32a()
	h.Write([]byte(ip))
	h.Write([]byte{'|'})
	h.Write([]byte(user))
	return fmt.Sprintf("ssh_%08x", h.Sum32())
}
