package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "home-7"
database:
  path: "/var/lib/safehouse/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    tls: true
security:
  jwt:
    secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "home-7" {
		t.Errorf("Site.ID = %q, want home-7", cfg.Site.ID)
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 8883 || !cfg.MQTT.Broker.TLS {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	// Untouched sections keep their defaults.
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS = %d, want default 1", cfg.MQTT.QoS)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file")
	}

	if _, err := Load(writeConfig(t, "mqtt: [broken")); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}

	// No JWT secret anywhere.
	_, err := Load(writeConfig(t, "site:\n  id: x\n"))
	if err == nil || !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("Load() error = %v, want jwt secret validation error", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with secret", mutate: func(*Config) {}},
		{name: "missing site id", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: "site.id"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "missing broker host", mutate: func(c *Config) { c.MQTT.Broker.Host = "" }, wantErr: "mqtt.broker.host"},
		{name: "broker port out of range", mutate: func(c *Config) { c.MQTT.Broker.Port = 0 }, wantErr: "mqtt.broker.port"},
		{name: "qos too high", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "api port too high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: "api.port"},
		{name: "influx enabled without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: "influxdb.url"},
		{name: "short secret", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: "at least 32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.Database.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	for _, want := range []string{"site.id", "database.path", "security.jwt.secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SAFEHOUSE_DB_PATH", "/custom/safehouse.db")
	t.Setenv("SAFEHOUSE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SAFEHOUSE_MQTT_PORT", "1884")
	t.Setenv("SAFEHOUSE_MQTT_USERNAME", "api")
	t.Setenv("SAFEHOUSE_MQTT_PASSWORD", "pw")
	t.Setenv("SAFEHOUSE_API_PORT", "not-a-number")
	t.Setenv("SAFEHOUSE_INFLUXDB_TOKEN", "influx-token")
	t.Setenv("SAFEHOUSE_JWT_SECRET", testSecret)

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/safehouse.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" || cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Auth.Username != "api" || cfg.MQTT.Auth.Password != "pw" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want unparsable override ignored", cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "influx-token" {
		t.Errorf("InfluxDB.Token = %q", cfg.InfluxDB.Token)
	}
	if cfg.Security.JWT.Secret != testSecret {
		t.Errorf("Security.JWT.Secret not overridden")
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeouts: APITimeoutConfig{Read: 5, Write: 10, Idle: 90}}}

	if got := cfg.GetReadTimeout().Seconds(); got != 5 {
		t.Errorf("GetReadTimeout() = %v", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 10 {
		t.Errorf("GetWriteTimeout() = %v", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 90 {
		t.Errorf("GetIdleTimeout() = %v", got)
	}
}
