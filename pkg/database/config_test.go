package database_test

import (
	"strings"
	"testing"
	"time"

	"github.com/conduitworks/conduit/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.Host != "localhost" || cfg.Port != 5432 {
		t.Errorf("host/port = %s:%d, want localhost:5432", cfg.Host, cfg.Port)
	}
	if cfg.Name != "conduit" || cfg.User != "conduit" {
		t.Errorf("name/user = %s/%s, want conduit/conduit", cfg.Name, cfg.User)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("SSLMode = %s, want disable", cfg.SSLMode)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Errorf("pool = %d/%d, want 25/5", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	env := &database.Env{
		Host: "TEST_DB_HOST",
		Port: "TEST_DB_PORT",
		Name: "TEST_DB_NAME",
	}
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "conduit_test")

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.Host != "db.internal" || cfg.Port != 5433 || cfg.Name != "conduit_test" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFinalizeRejectsBadDurations(t *testing.T) {
	cfg := database.Config{ConnTimeout: "soon"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("Finalize accepted an unparseable conn_timeout")
	}
}

func TestDsn(t *testing.T) {
	cfg := database.Config{
		Host: "localhost", Port: 5432,
		Name: "conduit", User: "app", Password: "secret",
		SSLMode: "require",
	}

	dsn := cfg.Dsn()
	for _, fragment := range []string{
		"host=localhost", "port=5432", "dbname=conduit",
		"user=app", "password=secret", "sslmode=require",
	} {
		if !strings.Contains(dsn, fragment) {
			t.Errorf("Dsn() = %q, missing %q", dsn, fragment)
		}
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := database.Config{ConnMaxLifetime: "15m", ConnTimeout: "5s"}

	if got := cfg.ConnMaxLifetimeDuration(); got != 15*time.Minute {
		t.Errorf("ConnMaxLifetimeDuration = %v, want 15m", got)
	}
	if got := cfg.ConnTimeoutDuration(); got != 5*time.Second {
		t.Errorf("ConnTimeoutDuration = %v, want 5s", got)
	}
}

func TestMerge(t *testing.T) {
	cfg := database.Config{Host: "localhost", Port: 5432, Name: "conduit"}
	cfg.Merge(&database.Config{Host: "db.internal", Password: "secret"})

	if cfg.Host != "db.internal" {
		t.Errorf("Host = %s, want db.internal", cfg.Host)
	}
	if cfg.Password != "secret" {
		t.Errorf("Password = %s, want secret", cfg.Password)
	}
	if cfg.Port != 5432 || cfg.Name != "conduit" {
		t.Error("merge overwrote fields the overlay left unset")
	}
}
