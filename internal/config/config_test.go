package config

import (
	"math"
	"testing"
)

func TestParseQuota(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"100", 100, false},
		{"inf", math.Inf(1), false},
		{"+Infinity", math.Inf(1), false},
		{"  INF  ", math.Inf(1), false},
		{"not-a-number", 0, true},
	}

	for _, tc := range cases {
		got, err := parseQuota(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseQuota(%q) expected an error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseQuota(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if math.IsInf(tc.want, 1) {
			if !math.IsInf(got, 1) {
				t.Errorf("parseQuota(%q) = %v, want +Inf", tc.in, got)
			}
			continue
		}
		if got != tc.want {
			t.Errorf("parseQuota(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewRequiresCoreFields(t *testing.T) {
	t.Setenv("node_blockchain", "")
	t.Setenv("node_url", "")
	t.Setenv("redis_host", "")

	if _, err := New(); err == nil {
		t.Fatal("expected New() to fail without node_blockchain/node_url/redis_host set")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("node_blockchain", "demo")
	t.Setenv("node_url", "http://localhost:9090")
	t.Setenv("redis_host", "localhost:6379")
	t.Setenv("limit_default", "")
	t.Setenv("limit_interval", "")
	t.Setenv("sidecar_limit_sync_interval", "")
	t.Setenv("sidecar_urls", "")
	t.Setenv("environment", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.LimitDefault != 10000 {
		t.Errorf("LimitDefault = %v, want 10000", cfg.LimitDefault)
	}
	if cfg.LimitInterval != 86400 {
		t.Errorf("LimitInterval = %v, want 86400", cfg.LimitInterval)
	}
	if cfg.SidecarSyncEvery != 1000 {
		t.Errorf("SidecarSyncEvery = %v, want 1000", cfg.SidecarSyncEvery)
	}
	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
}

func TestNewParsesSidecarURLList(t *testing.T) {
	t.Setenv("node_blockchain", "demo")
	t.Setenv("node_url", "http://localhost:9090")
	t.Setenv("redis_host", "localhost:6379")
	t.Setenv("sidecar_urls", "http://a:8080, http://b:8080 ,")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []string{"http://a:8080", "http://b:8080"}
	if len(cfg.SidecarURLs) != len(want) {
		t.Fatalf("SidecarURLs = %v, want %v", cfg.SidecarURLs, want)
	}
	for i := range want {
		if cfg.SidecarURLs[i] != want[i] {
			t.Fatalf("SidecarURLs = %v, want %v", cfg.SidecarURLs, want)
		}
	}
}
