package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	envDSN = "PROMPTS_REMOTE_URL"
	envKey = "PROMPTS_REMOTE_KEY"
)

func main() {
	var (
		dsn     = flag.String("dsn", "", "Postgres connection string (defaults to $PROMPTS_REMOTE_URL)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	if *dsn == "" {
		*dsn = os.Getenv(envDSN)
	}
	if *dsn == "" {
		fatal("no connection string: pass -dsn or set " + envDSN)
	}
	conn, err := withAccessKey(*dsn, os.Getenv(envKey))
	if err != nil {
		fatal("invalid connection string", "error", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		fatal("failed to create migration source", "error", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, conn)
	if err != nil {
		fatal("failed to create migrator", "error", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil {
			fatal("failed to get version", "error", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			fatal("failed to force version", "error", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("failed to run up migrations", "error", err)
		}
		fmt.Println("migrations applied successfully")
	case *down:
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("failed to run down migrations", "error", err)
		}
		fmt.Println("migrations reverted successfully")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			fatal("failed to run migrations", "error", err)
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate -dsn <connection-string> [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}

// withAccessKey sets the URL password to key, matching how the server
// combines PROMPTS_REMOTE_URL and PROMPTS_REMOTE_KEY.
func withAccessKey(dsn, key string) (string, error) {
	if key == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	user := "postgres"
	if u.User != nil {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, key)
	return u.String(), nil
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
