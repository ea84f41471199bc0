package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/agrogestion/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "AGRO_DB_DSN"

var errNoDatabase = errors.New("reports catalog is not postgres; set -dsn or AGRO_DB_DSN to migrate anyway")

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database connection string (default: AGRO_DB_DSN, then the [database] config)")
		up      = flag.Bool("up", false, "Apply all pending migrations")
		down    = flag.Bool("down", false, "Revert all migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
		drop    = flag.Bool("drop", false, "Drop every table in the database")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	url, err := resolveDSN(*dsn)
	if err != nil {
		log.Fatal(err)
	}

	m, err := newMigrator(url)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if err != nil {
			log.Fatalf("read version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case *drop:
		if err := m.Drop(); err != nil {
			log.Fatalf("drop schema: %v", err)
		}
		fmt.Println("schema dropped")
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		apply(m.Up, "reports schema is up to date")
	case *down:
		apply(m.Down, "reports schema reverted")
	case *steps != 0:
		apply(func() error { return m.Steps(*steps) }, fmt.Sprintf("applied %d migration steps", *steps))
	default:
		fmt.Println("usage: migrate [-dsn <connection-string>] -up|-down|-steps N|-version|-force N|-drop")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

// resolveDSN picks the connection string from the flag, then AGRO_DB_DSN,
// then the service configuration when its catalog runs on PostgreSQL.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if !cfg.UsesDatabase() {
		return "", errNoDatabase
	}
	return cfg.Database.URL(), nil
}

func newMigrator(url string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func apply(step func() error, done string) {
	if err := step(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}
	fmt.Println(done)
}
