package detect

import (
	"strings"
	"testing"
	"time"

	"hostsentry/internal/alert"
)

func newTestSSHDetector() *SSHDetector {
	d := NewSSHDetector()
	d.localIP = func() string { return "192.168.1.10" }
	d.now = func() time.Time { return time.Date(2026, 8, 26, 12, 0, 0, 0, time.Local) }
	return d
}

func TestSSHScanDetectsLogin(t *testing.T) {
	d := newTestSSHDetector()
	lines := []string{
		"Aug 26 10:15:03 myserver sshd[4321]: Accepted password for root from 203.0.113.9 port 51234 ssh2",
	}

	events := d.Scan(lines, nil)
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != alert.TypeSSH || ev.Clear {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Key != alert.SSHKey("203.0.113.9", "root") {
		t.Fatalf("unexpected key: %s", ev.Key)
	}
	for _, want := range []string{
		"203.0.113.9",
		"root",
		"myserver",
		"https://ipinfo.io/203.0.113.9",
		"26 Aug 2026 10:15",
	} {
		if !strings.Contains(ev.Message, want) {
			t.Errorf("message missing %q:\n%s", want, ev.Message)
		}
	}
}

func TestSSHScanSkipsExcludedAddresses(t *testing.T) {
	d := newTestSSHDetector()
	lines := []string{
		"Aug 26 10:15:03 myserver sshd[4321]: Accepted publickey for admin from 192.168.1.50 port 51234 ssh2",
		"Aug 26 10:16:03 myserver sshd[4322]: Accepted password for root from 203.0.113.9 port 51235 ssh2",
	}

	events := d.Scan(lines, []string{"192.168.0.0/16"})
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	if !strings.Contains(events[0].Message, "203.0.113.9") {
		t.Fatal("wrong login survived the filter")
	}
}

func TestSSHScanIgnoresNoise(t *testing.T) {
	d := newTestSSHDetector()
	lines := []string{
		"Aug 26 10:15:03 myserver sshd[4321]: Failed password for root from 203.0.113.9 port 51234 ssh2",
		"Aug 26 10:15:04 myserver CRON[999]: pam_unix(cron:session): session opened for user root",
		"Aug 26 10:15:05 myserver sshd[4321]: Disconnected from 203.0.113.9",
	}

	if events := d.Scan(lines, nil); len(events) != 0 {
		t.Fatalf("want no events from non-login lines, got %d", len(events))
	}
}

func TestSSHScanSamePrincipalSameKey(t *testing.T) {
	d := newTestSSHDetector()
	lines := []string{
		"Aug 26 10:15:03 myserver sshd[4321]: Accepted password for root from 203.0.113.9 port 51234 ssh2",
		"Aug 26 10:20:03 myserver sshd[4390]: Accepted password for root from 203.0.113.9 port 51300 ssh2",
	}

	events := d.Scan(lines, nil)
	if len(events) != 2 {
		t.Fatalf("want 2 events, got %d", len(events))
	}
	if events[0].Key != events[1].Key {
		t.Fatal("same ip/user logins must share a key for dedup")
	}
}
