package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	"github.com/af-corp/taskmind/internal/config"
	"github.com/af-corp/taskmind/migrations"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	migrationsPath := flag.String("path", "", "migrations directory (default: migrations built into the binary)")
	flag.Parse()

	_ = godotenv.Load()

	dsn := *dbURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		dsn = dsnFromEnv()
	}

	m, err := newMigrator(*migrationsPath, dsn)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		log.Fatalf("invalid direction: %s (use 'up' or 'down')", *direction)
	}

	if err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migration failed: %v", err)
	}

	v, dirty, _ := m.Version()
	fmt.Printf("migration %s complete (version: %d, dirty: %v)\n", *direction, v, dirty)
}

func newMigrator(path, dsn string) (*migrate.Migrate, error) {
	if path != "" {
		return migrate.New("file://"+path, dsn)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

// dsnFromEnv builds the DSN from TASKMIND_DB_* variables, defaulting to the
// local development database.
func dsnFromEnv() string {
	db := config.DefaultConfig().Database
	db.Host = envOrDefault("TASKMIND_DB_HOST", db.Host)
	db.Name = envOrDefault("TASKMIND_DB_NAME", db.Name)
	db.User = envOrDefault("TASKMIND_DB_USER", db.User)
	db.Password = envOrDefault("TASKMIND_DB_PASSWORD", "taskmind-dev")
	db.SSLMode = envOrDefault("TASKMIND_DB_SSLMODE", db.SSLMode)
	if port := os.Getenv("TASKMIND_DB_PORT"); port != "" {
		if _, err := fmt.Sscanf(port, "%d", &db.Port); err != nil {
			log.Fatalf("invalid TASKMIND_DB_PORT %q: %v", port, err)
		}
	}
	return db.DSN()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
