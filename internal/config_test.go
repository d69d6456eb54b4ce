package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/sheaf/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.SQLite.Path != "./sheaf.db" {
		t.Errorf("sqlite path = %q", cfg.SQLite.Path)
	}
}

func TestShareConfig_Validate(t *testing.T) {
	cfg := ShareConfig{Origin: "https://notes.example.com", RemoteURL: "http://store:8080"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid share config: %v", err)
	}

	cfg = ShareConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("missing origin should fail")
	}

	cfg = ShareConfig{Origin: "notes.example.com"}
	if err := cfg.Validate(); err == nil {
		t.Error("origin without scheme should fail")
	}

	cfg = ShareConfig{Origin: "https://a.test", RemoteURL: "ftp://store"}
	if err := cfg.Validate(); err == nil {
		t.Error("non-http remote should fail")
	}
}

func TestExportConfig_Validate(t *testing.T) {
	cfg := ExportConfig{BlobTTL: time.Minute}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid export config: %v", err)
	}
	cfg = ExportConfig{BlobTTL: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Error("sub-second ttl should fail")
	}
}

func TestLoad_YAMLWithEnv(t *testing.T) {
	t.Setenv("SHEAF_TEST_ORIGIN", "https://env.example.com")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  http:
    port: 9090
vault:
  path: ./notes
sqlite:
  path: ./x.db
share:
  origin: ${SHEAF_TEST_ORIGIN}
  timeout: 3s
export:
  blob_ttl: 2m
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Share.Origin != "https://env.example.com" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Share.Timeout != 3*time.Second || cfg.Export.BlobTTL != 2*time.Minute {
		t.Errorf("durations = %v %v", cfg.Share.Timeout, cfg.Export.BlobTTL)
	}
	if cfg.Auth.Mode != AuthModeDisabled {
		t.Errorf("auth mode = %q", cfg.Auth.Mode)
	}
}
