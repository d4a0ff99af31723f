package internal

import (
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestAPIConfig_InvalidURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.API.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("malformed base URL should fail validation")
	}
}

func TestAPIConfig_NegativeTimeout(t *testing.T) {
	cfg := APIConfig{BaseURL: "http://localhost:8080", Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout should fail validation")
	}
}

func TestCacheConfig_ZeroCapacity(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cache.Capacity = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero capacity means default, should pass: %v", err)
	}
}

func TestStubConfig_MissingToken(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Stub.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty stub token should fail validation")
	}
}

func TestStubConfig_PortRange(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Stub.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
}
