package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hostsentry/internal/alert"
	"hostsentry/internal/config"
	"hostsentry/internal/detect"
)

type noopNotifier struct{ sent int }

func (n *noopNotifier) Send(ctx context.Context, text string) error {
	n.sent++
	return nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *noopNotifier, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Monitoring.AuthLogPath = filepath.Join(dir, "auth.log")
	cfg.Monitoring.CheckpointPath = filepath.Join(dir, "position")
	cfg.Monitoring.LedgerPath = filepath.Join(dir, "alerts.json")
	cfg.ExcludedIPs = []string{"192.168.0.0/16"}

	configPath := filepath.Join(dir, "config.yaml")
	if err := cfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	nt := &noopNotifier{}
	dispatcher := alert.NewDispatcher(alert.NewLedger(cfg.Monitoring.LedgerPath), nt, cfg)
	return NewScheduler(configPath, cfg, dispatcher), nt, configPath
}

func TestCheckSSHTriggersAndAdvancesCheckpoint(t *testing.T) {
	s, nt, _ := newTestScheduler(t)

	line := "Aug 26 10:15:03 myserver sshd[4321]: Accepted password for root from 203.0.113.9 port 51234 ssh2\n"
	if err := os.WriteFile(s.cfg.Monitoring.AuthLogPath, []byte(line), 0644); err != nil {
		t.Fatal(err)
	}

	s.checkSSH(context.Background())

	if nt.sent != 1 {
		t.Fatalf("want 1 notification, got %d", nt.sent)
	}
	key := alert.SSHKey("203.0.113.9", "root")
	if _, ok := s.dispatcher.Active()[key]; !ok {
		t.Fatal("ssh alert not recorded")
	}
	if s.offset == 0 {
		t.Fatal("checkpoint offset must advance")
	}

	// second pass over the same file: nothing new, no duplicate delivery
	s.checkSSH(context.Background())
	if nt.sent != 1 {
		t.Fatalf("re-reading consumed lines must not renotify, got %d", nt.sent)
	}
}

type panickyNotifier struct{}

func (panickyNotifier) Send(ctx context.Context, text string) error {
	panic("transport blew up")
}

func TestCheckSSHPersistsCheckpointBeforeDispatch(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.dispatcher = alert.NewDispatcher(
		alert.NewLedger(s.cfg.Monitoring.LedgerPath), panickyNotifier{}, s.cfg)

	line := "Aug 26 10:15:03 myserver sshd[4321]: Accepted password for root from 203.0.113.9 port 51234 ssh2\n"
	if err := os.WriteFile(s.cfg.Monitoring.AuthLogPath, []byte(line), 0644); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the dispatch to panic")
			}
		}()
		s.checkSSH(context.Background())
	}()

	// a crash mid-dispatch must not replay the consumed lines
	saved := detect.NewCheckpoint(s.cfg.Monitoring.CheckpointPath).Load()
	if saved != int64(len(line)) {
		t.Fatalf("checkpoint must be durable before dispatch, got %d want %d", saved, len(line))
	}
}

func TestCheckSSHMissingLogIsHarmless(t *testing.T) {
	s, nt, _ := newTestScheduler(t)

	s.checkSSH(context.Background())
	if nt.sent != 0 {
		t.Fatal("missing auth log must not notify")
	}
	if s.offset != 0 {
		t.Fatal("missing auth log must not move the checkpoint")
	}
}

func TestReloadConfigKeepsPreviousOnError(t *testing.T) {
	s, _, configPath := newTestScheduler(t)
	before := s.cfg

	if err := os.WriteFile(configPath, []byte(":::bad yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	s.reloadConfig()
	if s.cfg != before {
		t.Fatal("broken config file must keep the previous configuration")
	}

	// a fixed file takes effect again
	fixed := config.Default()
	fixed.Monitoring.AuthLogPath = before.Monitoring.AuthLogPath
	if err := fixed.Save(configPath); err != nil {
		t.Fatal(err)
	}
	s.reloadConfig()
	if s.cfg == before {
		t.Fatal("valid config file must be picked up")
	}
}
