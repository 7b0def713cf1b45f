package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeUptime(t *testing.T, path string, seconds float64) {
	t.Helper()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%.2f 123.45\n", seconds)), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRebootDetectedOnUptimeDrop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptime")
	d := NewRebootDetector(path, "")
	d.localIP = func() string { return "192.168.1.10" }

	writeUptime(t, path, 50000)
	d.Seed()

	writeUptime(t, path, 50010)
	if ev := d.Check(); ev != nil {
		t.Fatalf("growing uptime must not trigger, got %+v", ev)
	}

	writeUptime(t, path, 12)
	ev := d.Check()
	if ev == nil {
		t.Fatal("uptime drop must trigger")
	}
	if !ev.Force {
		t.Fatal("reboot events must bypass the reminder interval")
	}

	// baseline advanced: no second event for the same reboot
	writeUptime(t, path, 22)
	if ev := d.Check(); ev != nil {
		t.Fatalf("one reboot must yield one event, got %+v", ev)
	}
}

func TestRebootNotTriggeredFromUnsettledBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptime")
	d := NewRebootDetector(path, "")

	// baseline never read (file missing at seed time): prev stays 0
	d.Seed()
	writeUptime(t, path, 5000)
	if ev := d.Check(); ev != nil {
		t.Fatalf("rise from zero baseline must not trigger, got %+v", ev)
	}
}

func TestReadUptimeFallsBack(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "host_uptime")
	writeUptime(t, fallback, 777)

	d := NewRebootDetector(filepath.Join(dir, "missing"), fallback)
	if got := d.ReadUptime(); got != 777 {
		t.Fatalf("want fallback value 777, got %v", got)
	}

	d = NewRebootDetector(filepath.Join(dir, "missing"), filepath.Join(dir, "also_missing"))
	if got := d.ReadUptime(); got != 0 {
		t.Fatalf("want 0 when no source is readable, got %v", got)
	}
}
