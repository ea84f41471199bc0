package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDSN(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		got, err := resolveDSN("postgres://flag")
		if err != nil || got != "postgres://flag" {
			t.Errorf("resolveDSN() = %q, %v", got, err)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		got, err := resolveDSN("")
		if err != nil || got != "postgres://env" {
			t.Errorf("resolveDSN() = %q, %v", got, err)
		}
	})

	t.Run("local catalog", func(t *testing.T) {
		t.Setenv(envDSN, "")
		if _, err := resolveDSN(""); !errors.Is(err, errNoDatabase) {
			t.Errorf("resolveDSN() error = %v, want errNoDatabase", err)
		}
	})

	t.Run("postgres config", func(t *testing.T) {
		t.Setenv(envDSN, "")
		cfg := "[reports]\ncatalog = \"postgres\"\n\n[database]\nhost = \"db\"\nname = \"agrogestion\"\nuser = \"agro\"\npassword = \"agro\"\n"
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("AGRO_CONFIG", path)

		got, err := resolveDSN("")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(got, "postgres://agro:agro@db:") || !strings.Contains(got, "/agrogestion?sslmode=") {
			t.Errorf("resolveDSN() = %q", got)
		}
	})
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, name := range []string{"000001_reports.up.sql", "000001_reports.down.sql"} {
		data, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !strings.Contains(string(data), "reports") {
			t.Errorf("%s does not touch the reports table", name)
		}
	}
}
