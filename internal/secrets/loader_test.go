package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  file-secret\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	got, err := Load(Source{Name: "api token", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file-secret" {
		t.Fatalf("expected file-secret, got %q", got)
	}
}

func TestLoadFilePrecedesEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("from-file"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	t.Setenv("SECRETS_TEST_TOKEN", "from-env")

	got, err := Load(Source{Name: "token", File: path, Env: "SECRETS_TEST_TOKEN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected from-file, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SECRETS_TEST_PASSWORD", "  env-secret  ")

	got, err := Load(Source{Name: "password", Env: "SECRETS_TEST_PASSWORD", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-secret" {
		t.Fatalf("expected env-secret, got %q", got)
	}
}

func TestLoadFallsBackToValue(t *testing.T) {
	t.Setenv("SECRETS_TEST_EMPTY", "   ")

	got, err := Load(Source{Name: "password", Env: "SECRETS_TEST_EMPTY", Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Fatalf("expected inline, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := Load(Source{Name: "api token"}); err == nil {
		t.Fatalf("expected error for unconfigured secret")
	} else if !strings.Contains(err.Error(), "api token") {
		t.Fatalf("expected error to mention secret name, got %v", err)
	}

	if _, err := Load(Source{Name: "token", File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("writing empty file: %v", err)
	}
	if _, err := Load(Source{Name: "token", File: empty}); err == nil {
		t.Fatalf("expected error for empty file")
	}
}

func TestLoadOptional(t *testing.T) {
	t.Parallel()

	got, err := LoadOptional(Source{Name: "linkedin password"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty secret, got %q", got)
	}

	if _, err := LoadOptional(Source{Name: "token", File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing file even when optional")
	}
}
