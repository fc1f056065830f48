package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"

	"orchboard/internal/config"
	"orchboard/internal/db"
	"orchboard/internal/engine"
	"orchboard/internal/metrics"
	"orchboard/internal/migrate"
)

// LoadEnv loads workspace/.env into the process environment. Variables that
// are already set are left as they are. A missing file is not an error.
func LoadEnv(workspace string) error {
	if workspace == "" {
		workspace = "."
	}
	err := godotenv.Load(filepath.Join(workspace, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Overrides carry flag and environment values that win over orchboard.yml.
// Zero values leave the file setting untouched.
type Overrides struct {
	Addr            string
	BasePath        string
	MaxConcurrent   int
	APIKey          string
	JWTSecret       string
	SameOriginHosts []string
}

// ResolveConfig reads orchboard.yml from configPath, or from the workspace
// when configPath is empty (defaults if the file is absent), then applies
// overrides and validates the result.
func ResolveConfig(workspace, configPath string, ov Overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.FromFile(configPath)
	} else {
		cfg, err = config.LoadOptional(workspace)
	}
	if err != nil {
		return nil, err
	}
	if ov.Addr != "" {
		cfg.Server.Addr = ov.Addr
	}
	if ov.BasePath != "" {
		cfg.Server.BasePath = ov.BasePath
	}
	if ov.MaxConcurrent != 0 {
		cfg.Runs.MaxConcurrent = ov.MaxConcurrent
	}
	if ov.APIKey != "" {
		cfg.Auth.APIKey = ov.APIKey
	}
	if ov.JWTSecret != "" {
		cfg.Auth.JWTSecret = ov.JWTSecret
	}
	if len(ov.SameOriginHosts) > 0 {
		cfg.Auth.SameOriginHosts = ov.SameOriginHosts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Context is an opened, migrated workspace with its engine.
type Context struct {
	DB      *sql.DB
	Config  *config.Config
	Engine  engine.Engine
	Metrics *metrics.Metrics
}

type OpenOptions struct {
	Workspace string
	DBPath    string
	Config    *config.Config
	Logger    *log.Logger
}

// Open opens the workspace database, applies migrations and builds the engine.
func Open(ctx context.Context, opts OpenOptions) (*Context, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, Path: opts.DBPath})
	if err != nil {
		return nil, err
	}
	if _, err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	if opts.Logger != nil {
		e.Logger = opts.Logger
	}
	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
		e.Metrics = m
	}
	return &Context{DB: conn, Config: cfg, Engine: e, Metrics: m}, nil
}

func (c *Context) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
