package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "server:\n  postgresDsn: \"host=db\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if conf.Server.Listen != ":8000" {
		t.Fatalf("expected default listen addr, got %q", conf.Server.Listen)
	}
	if conf.Server.PostgresDsn != "host=db" {
		t.Fatalf("unexpected dsn %q", conf.Server.PostgresDsn)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestIsValidAppID(t *testing.T) {
	cases := []struct {
		id    string
		valid bool
	}{
		{"2f9a1c5e-7b3d-4e8a-9f21-6c4d8b0a5e37", true},
		{"2F9A1C5E-7B3D-4E8A-9F21-6C4D8B0A5E37", true},
		{"2f9a1c5e-7b3d-1e8a-9f21-6c4d8b0a5e37", false}, // v1
		{"not-a-uuid", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsValidAppID(c.id); got != c.valid {
			t.Errorf("IsValidAppID(%q) = %v, want %v", c.id, got, c.valid)
		}
	}
}

func TestClientFromEnv(t *testing.T) {
	t.Setenv("PICSYNC_SERVER_URL", "http://localhost:8000")
	t.Setenv("PICSYNC_APP_ID", "2f9a1c5e-7b3d-4e8a-9f21-6c4d8b0a5e37")
	t.Setenv("UNSPLASH_ACCESS_KEY", "key")
	t.Setenv("PICSYNC_STATE_DIR", "/tmp/picsync-test")

	c := ClientFromEnv()
	if c.ServerURL != "http://localhost:8000" || c.AppID == "" || c.PhotoAccessKey != "key" {
		t.Fatalf("env not picked up: %+v", c)
	}
	if c.StateDir != "/tmp/picsync-test" {
		t.Fatalf("explicit state dir not honored: %q", c.StateDir)
	}

	t.Setenv("PICSYNC_STATE_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if ClientFromEnv().StateDir == "" {
		t.Fatalf("state dir must default when unset")
	}
}
