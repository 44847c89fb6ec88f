package wire

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/alanyang/prompt-manager/internal/adapter/local"
	"github.com/alanyang/prompt-manager/internal/adapter/memory"
	pgdb "github.com/alanyang/prompt-manager/internal/adapter/postgres"
	pgprompt "github.com/alanyang/prompt-manager/internal/adapter/postgres/prompt"
	"github.com/alanyang/prompt-manager/internal/adapter/rest"
	"github.com/alanyang/prompt-manager/internal/adapter/sqlite"
	"github.com/alanyang/prompt-manager/internal/adapter/storage"
	"github.com/alanyang/prompt-manager/internal/config"
	portprompt "github.com/alanyang/prompt-manager/internal/port/prompt"
)

// Storage is the persistence stack shared by the server and the CLI.
type Storage struct {
	Store *storage.Adapter
	Cache portprompt.SnapshotCache

	closers []func()
}

// Close releases database handles in reverse order of opening.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// BuildStorage opens the local KV and, when credentials are valid, the remote
// table, then lets the storage adapter choose its backend.
func BuildStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	s := &Storage{}

	kv, err := openKV(ctx, cfg.Local, s)
	if err != nil {
		s.Close()
		return nil, err
	}

	var remote portprompt.Table
	if cfg.Remote.Valid() {
		remote, err = openRemote(ctx, cfg.Remote, s)
		if err != nil {
			s.Close()
			return nil, err
		}
	} else if cfg.Remote.URL != "" || cfg.Remote.Key != "" {
		slog.Warn("remote credentials incomplete or unsupported, ignoring them", "scheme", cfg.Remote.Scheme())
	}

	store, err := storage.New(storage.Options{
		Remote:     remote,
		Local:      kv,
		Production: cfg.Production(),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("building storage adapter: %w", err)
	}

	s.Store = store
	s.Cache = local.NewCache(kv)
	return s, nil
}

func openKV(ctx context.Context, cfg config.LocalConfig, s *Storage) (portprompt.KV, error) {
	if cfg.Driver == "memory" {
		return memory.NewKV(), nil
	}

	db, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	s.closers = append(s.closers, func() { closeDB(db) })

	kv, err := sqlite.NewKV(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	slog.Info("local store opened", "path", cfg.Path)
	return kv, nil
}

func openRemote(ctx context.Context, cfg config.RemoteConfig, s *Storage) (portprompt.Table, error) {
	switch cfg.Scheme() {
	case "postgres", "postgresql":
		pool, err := pgdb.Connect(ctx, cfg.URL, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("connecting to remote database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		return pgprompt.New(pool), nil
	default:
		table, err := rest.New(cfg.URL, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("configuring remote api: %w", err)
		}
		return table, nil
	}
}

func closeDB(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("closing local store", "error", err)
	}
}
