package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `
logging:
  level: debug
  console: true
registry:
  base_url: https://registry.example.net/api
  lookback: 720h
  chunk_days: 7
  meta_ttl: 6h
storage:
  path: /var/lib/nomwatch/follows.db
  busy_timeout: 5s
engine:
  default_cap: 4
  caps:
    telegram: 1
    webhook: 8
schedule:
  spec: "30 8 * * *"
  timezone: Europe/Paris
channels:
  telegram:
    token: "123:abc"
    parts_per_second: 1
  webhook:
    endpoint: https://hooks.example.net/notify
    timeout: 8s
`

func TestParseYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Registry.BaseURL != "https://registry.example.net/api" {
		t.Fatalf("base_url = %q", cfg.Registry.BaseURL)
	}
	if cfg.Engine.Caps["telegram"] != 1 || cfg.Engine.Caps["webhook"] != 8 {
		t.Fatalf("caps = %+v", cfg.Engine.Caps)
	}
	if cfg.Channels.Telegram == nil || cfg.Channels.Telegram.Token != "123:abc" {
		t.Fatal("telegram channel not decoded")
	}
	if cfg.Channels.Shoutrrr != nil {
		t.Fatal("absent channel section must stay nil")
	}
	if cfg.Schedule.Timezone != "Europe/Paris" {
		t.Fatalf("timezone = %q", cfg.Schedule.Timezone)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.json", `{
	  "storage": {"path": "/tmp/f.db"},
	  "registry": {"base_url": "https://registry.example.net"}
	}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Path != "/tmp/f.db" {
		t.Fatalf("storage.path = %q", cfg.Storage.Path)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", `
registry:
  base_url: https://registry.example.net
  lookbak: 720h
storage:
  path: /tmp/f.db
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("typo'd field must be rejected")
	} else if !strings.Contains(err.Error(), "lookbak") {
		t.Fatalf("error should name the offending field, got %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.json", `{"storage":{"path":"/tmp/f.db"}}{"extra":1}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("trailing tokens must be rejected")
	}
}

func TestLoadCommitsAndGetReturnsIt(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty means unset", raw: "", want: 0},
		{name: "whitespace means unset", raw: "   ", want: 0},
		{name: "plain seconds", raw: "5s", want: 5 * time.Second},
		{name: "hours", raw: "720h", want: 720 * time.Hour},
		{name: "negative rejected", raw: "-1s", wantErr: true},
		{name: "bare number rejected", raw: "30", wantErr: true},
		{name: "garbage rejected", raw: "soon", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("registry.lookback", tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDurationField(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationOrDefault("registry.meta_ttl", "", 6*time.Hour); err != nil || d != 6*time.Hour {
		t.Fatalf("unset field must fall back to the default, got %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("registry.meta_ttl", "2h", 6*time.Hour); err != nil || d != 2*time.Hour {
		t.Fatalf("explicit field must win, got %v, %v", d, err)
	}
	if _, err := ParseDurationOrDefault("registry.meta_ttl", "nope", 6*time.Hour); err == nil {
		t.Fatal("invalid field must not be masked by the default")
	}
}
