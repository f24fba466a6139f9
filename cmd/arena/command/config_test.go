package command

import (
	"strings"
	"testing"
)

func TestConfigValidate_MissingAddr(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "addr is required") {
		t.Errorf("expected addr error, got: %v", err)
	}
}

func TestConfigValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{
		Listener: ListenerConfig{Addr: ":8080", Path: "ws"},
		Nats:     &NatsConfig{StartTimeout: "not-a-duration"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "path must start with /") {
		t.Errorf("expected path error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "start_timeout") {
		t.Errorf("expected start_timeout error, got: %v", err)
	}
}

func TestConfigValidate_Valid(t *testing.T) {
	cfg := &Config{
		Listener: ListenerConfig{Addr: ":8080", Path: "/ws"},
		Nats:     &NatsConfig{Port: 4222, StartTimeout: "5s"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildWorkers(t *testing.T) {
	cfg := &Config{Listener: ListenerConfig{Addr: ":8080"}}

	workers, err := BuildWorkers(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := workers["listener"]; !ok {
		t.Error("expected listener worker")
	}
	if _, ok := workers["nats"]; ok {
		t.Error("nats worker should not exist without config")
	}
}

func TestBuildWorkers_WrongConfigType(t *testing.T) {
	if _, err := BuildWorkers(struct{}{}); err == nil {
		t.Error("expected error for wrong config type")
	}
}
