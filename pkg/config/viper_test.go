package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := "server:\n  port: 9000\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "campus.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Load(dir, "campus")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := v.GetInt("server.port"); got != 9000 {
		t.Errorf("server.port = %d, want 9000", got)
	}

	t.Setenv("SERVER_PORT", "9100")
	if got := v.GetInt("server.port"); got != 9100 {
		t.Errorf("server.port with env = %d, want 9100", got)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	v, err := Load(t.TempDir(), "absent")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.GetString("log.level") != "" {
		t.Errorf("unexpected value %q", v.GetString("log.level"))
	}
}

func TestLoadDotEnvKeepsProcessEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("CAMPUS_TEST_A=from-file\nCAMPUS_TEST_B=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAMPUS_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("CAMPUS_TEST_B") })

	if err := LoadDotEnv(file, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CAMPUS_TEST_A"); got != "from-env" {
		t.Errorf("CAMPUS_TEST_A = %q", got)
	}
	if got := os.Getenv("CAMPUS_TEST_B"); got != "from-file" {
		t.Errorf("CAMPUS_TEST_B = %q", got)
	}
}
