package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/auth"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/command"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/config"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/database/dbtest"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/infrastructure/logging"
	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/keycard"
)

const (
	testSecret = "test-secret-key-at-least-32-characters-long"
	testIssuer = "safehouse"
)

type published struct {
	topic   string
	payload string
}

// fakeTransport records publishes and fails when err is set.
type fakeTransport struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{topic, string(payload)})
	return f.err
}

func (f *fakeTransport) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

type testEnv struct {
	srv       *Server
	handler   http.Handler
	devices   *device.SQLRepository
	telemetry *device.SQLTelemetryRepository
	keycards  *keycard.SQLRepository
	transport *fakeTransport
	publisher *command.Publisher
	hub       *Hub
}

type envOption func(*Deps)

// newTestEnv builds a server over a migrated SQLite database and a real
// command publisher writing to a fake transport.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db := dbtest.New(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	env := &testEnv{
		devices:   device.NewSQLRepository(db),
		telemetry: device.NewSQLTelemetryRepository(db),
		keycards:  keycard.NewSQLRepository(db),
		transport: &fakeTransport{},
	}
	env.publisher = command.NewPublisher(env.transport, command.Config{})

	wsCfg := config.WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
	env.hub = NewHub(wsCfg, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go env.hub.Run(ctx)

	deps := Deps{
		Config: config.APIConfig{
			Host:         "127.0.0.1",
			MaxBodyBytes: 1 << 20,
			Timeouts:     config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS:        wsCfg,
		Security:  config.SecurityConfig{JWT: config.JWTConfig{Secret: testSecret, Issuer: testIssuer}},
		Logger:    log,
		Devices:   env.devices,
		Telemetry: env.telemetry,
		Keycards:  env.keycards,
		Commands:  env.publisher,
		Hub:       env.hub,
		Health: []HealthCheck{
			{Name: "database", Check: db.HealthCheck},
		},
		Version: "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	env.srv = srv
	env.handler = srv.buildRouter()
	return env
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken("alice", role, testSecret, testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return tok
}

// do sends a request as an admin unless bearer is given explicitly; pass
// "-" for no Authorization header.
func (e *testEnv) do(t *testing.T, method, path string, body any, bearer ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	switch {
	case len(bearer) == 0:
		req.Header.Set("Authorization", "Bearer "+token(t, auth.RoleAdmin))
	case bearer[0] != "-":
		req.Header.Set("Authorization", "Bearer "+bearer[0])
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// provision stores a device, assigned when userID and location are set.
func (e *testEnv) provision(t *testing.T, kind device.Kind, id, userID, location string) {
	t.Helper()
	d := &device.Device{Kind: kind, ID: id, Active: true}
	if userID != "" {
		d.UserID = &userID
		d.Location = &location
	}
	if err := e.devices.Create(context.Background(), d); err != nil {
		t.Fatalf("Create device: %v", err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return env
}

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error"}, "test")
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without repositories should fail")
	}
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil, "-")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	resp := decode(t, w)
	var report HealthReport
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.Status != "ok" || report.Version != "test" {
		t.Errorf("report = %+v, want ok/test", report)
	}
	if report.Components["database"].Status != "ok" {
		t.Errorf("database component = %+v", report.Components["database"])
	}
}

func TestHealth_Degraded(t *testing.T) {
	tests := []struct {
		name     string
		optional bool
		want     int
	}{
		{"required component down", false, http.StatusServiceUnavailable},
		{"optional component down", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(d *Deps) {
				d.Health = append(d.Health, HealthCheck{
					Name:     "mqtt",
					Check:    func(context.Context) error { return errors.New("not connected") },
					Optional: tt.optional,
				})
			})

			w := env.do(t, http.MethodGet, "/api/v1/health", nil, "-")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var report HealthReport
			if err := json.Unmarshal(decode(t, w).Data, &report); err != nil {
				t.Fatalf("unmarshal report: %v", err)
			}
			if got := report.Components["mqtt"]; got.Status != "error" || got.Error != "not connected" {
				t.Errorf("mqtt component = %+v", got)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "# metrics")
		})
	})

	w := env.do(t, http.MethodGet, "/api/v1/metrics", nil, "-")
	if w.Code != http.StatusOK || w.Body.String() != "# metrics" {
		t.Errorf("metrics = %d %q", w.Code, w.Body.String())
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil, "-")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://app.safehouse.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/nonexistent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decode(t, w); resp.Success || resp.Code != ErrCodeNotFound {
		t.Errorf("body = %+v", resp)
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: auth.RoleAdmin,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}
	foreign, err := auth.GenerateAccessToken("alice", auth.RoleAdmin, "another-secret-that-is-32-chars-long!", testIssuer, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/devices", "-", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/devices", "not-a-jwt", http.StatusUnauthorized},
		{"expired token", http.MethodGet, "/api/v1/devices", expired, http.StatusUnauthorized},
		{"wrong secret", http.MethodGet, "/api/v1/devices", foreign, http.StatusUnauthorized},
		{"user reads devices", http.MethodGet, "/api/v1/devices", token(t, auth.RoleUser), http.StatusOK},
		{"user cannot manage keycards", http.MethodDelete, "/api/v1/keycards/1", token(t, auth.RoleUser), http.StatusForbidden},
		{"user cannot delete devices", http.MethodDelete, "/api/v1/devices/fan/1", token(t, auth.RoleUser), http.StatusForbidden},
		{"admin reaches handler", http.MethodDelete, "/api/v1/keycards/1", token(t, auth.RoleAdmin), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, nil, tt.bearer)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestBodySizeLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Config.MaxBodyBytes = 32 })

	body := fmt.Sprintf(`{"deviceId":"1","isLocked":true,"pad":%q}`, strings.Repeat("x", 64))
	w := env.do(t, http.MethodPost, "/api/v1/keycards/rfid", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestServer_StartAndClose(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Config.Port = 19180 })

	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	addr := "http://127.0.0.1:19180/api/v1/health"
	var resp *http.Response
	var err error
	for deadline := time.Now().Add(2 * time.Second); time.Now().Before(deadline); time.Sleep(20 * time.Millisecond) {
		if resp, err = http.Get(addr); err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := http.Get(addr); err == nil {
		t.Error("server still responding after Close()")
	}
}
