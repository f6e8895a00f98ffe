package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	return tmpfile.Name()
}

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  dbname: "testdb"

auth:
  sessionSecret: "test-secret"
  callbackToken: "test-callback-token"
  signupCredits: 500
  allowedOrigins:
    - "https://app.example.com"
    - "http://localhost:3000"
`

	cfg, err := Load(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}

	if cfg.Database.Host != "testdb" {
		t.Errorf("Expected database host testdb, got %s", cfg.Database.Host)
	}

	if cfg.Auth.SignupCredits != 500 {
		t.Errorf("Expected signup credits 500, got %d", cfg.Auth.SignupCredits)
	}

	if len(cfg.Auth.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 allowed origins, got %d", len(cfg.Auth.AllowedOrigins))
	}

	// Defaults should fill everything the file omits
	if cfg.Auth.SessionTTL.Hours() != 168 {
		t.Errorf("Expected 7 day session TTL, got %v", cfg.Auth.SessionTTL)
	}

	if cfg.Storage.SignedURLExpiry.Seconds() != 600 {
		t.Errorf("Expected 600s signed URL expiry, got %v", cfg.Storage.SignedURLExpiry)
	}

	if cfg.Database.MaxConns != 25 {
		t.Errorf("Expected default max conns 25, got %d", cfg.Database.MaxConns)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	content := `
auth:
  callbackToken: "token-only"
`

	if _, err := Load(writeTempConfig(t, content)); err == nil {
		t.Error("Expected error when sessionSecret is missing")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}
