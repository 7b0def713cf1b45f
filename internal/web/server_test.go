package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hostsentry/internal/alert"
	"hostsentry/internal/config"
	"hostsentry/internal/history"
	"hostsentry/internal/notify"
)

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, text string) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	configPath := filepath.Join(dir, "config.yaml")
	if err := cfg.Save(configPath); err != nil {
		t.Fatal(err)
	}

	ledger := alert.NewLedger(filepath.Join(dir, "alerts.json"))
	dispatcher := alert.NewDispatcher(ledger, noopNotifier{}, cfg)

	historyDB, err := history.NewStore(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { historyDB.Close() })

	telegram := notify.NewTelegramClient(&cfg.Telegram)
	return NewServer(configPath, cfg, dispatcher, historyDB, telegram)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "healthy" {
		t.Fatalf("unexpected health response: %v", resp)
	}
}

func TestAlertsEndpointReflectsLedger(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.dispatcher.Trigger(context.Background(), "reboot", alert.TypeReboot, "riavviato", false); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, s, "GET", "/api/alerts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}

	var resp struct {
		Count int                     `json:"count"`
		Data  map[string]alert.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Fatalf("want 1 active alert, got %d", resp.Count)
	}
	if resp.Data["reboot"].Type != alert.TypeReboot {
		t.Fatalf("unexpected alerts payload: %+v", resp.Data)
	}
}

func TestGetConfigRedactsBotToken(t *testing.T) {
	s := newTestServer(t)

	cfg, err := config.Load(s.configPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Telegram.BotToken = "secret"
	if err := cfg.Save(s.configPath); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, s, "GET", "/api/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Fatal("bot token must not leak through the API")
	}
}

func TestUpdateConfigRejectsInvalidBody(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "PUT", "/api/config", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestUpdateConfigRejectsValuesLoadWouldRefuse(t *testing.T) {
	s := newTestServer(t)

	body := `{"AlertSettings":{"ssh":{"enabled":true,"reminder_interval":-5}}}`
	w := doRequest(t, s, "PUT", "/api/config", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for invalid settings, got %d", w.Code)
	}

	// the stored file must still load: the scheduler re-reads it every
	// cycle and the daemon refuses to start on a broken one
	if _, err := config.Load(s.configPath); err != nil {
		t.Fatalf("config file must stay loadable after rejected PUT: %v", err)
	}
}

func TestUpdateConfigPersistsLoadableFile(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "PUT", "/api/config", `{"TopProcesses":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		t.Fatalf("saved config must round-trip through Load: %v", err)
	}
	if cfg.TopProcesses != 7 {
		t.Fatalf("want top_processes 7, got %d", cfg.TopProcesses)
	}
	if got := s.currentConfig(); got.TopProcesses != 7 {
		t.Fatalf("in-memory snapshot not swapped, got %d", got.TopProcesses)
	}
}

func TestConfigSnapshotSurvivesConcurrentAccess(t *testing.T) {
	s := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			doRequest(t, s, "PUT", "/api/config", `{}`)
		}()
		go func() {
			defer wg.Done()
			// getResources reads the snapshot before dispatching on kind
			doRequest(t, s, "GET", "/api/resources/bogus", "")
		}()
	}
	wg.Wait()

	if s.currentConfig() == nil {
		t.Fatal("config snapshot lost")
	}
}

func TestResourcesRejectsUnknownKind(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "GET", "/api/resources/bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestPowerRequiresConfirm(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "POST", "/api/power", `{"action":"reboot"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 without confirm, got %d", w.Code)
	}

	w = doRequest(t, s, "POST", "/api/power", `{"action":"selfdestruct","confirm":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for unknown action, got %d", w.Code)
	}
}
