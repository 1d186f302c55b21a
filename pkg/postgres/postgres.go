package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNoURL is returned when a connection is requested without a configured URL.
var ErrNoURL = errors.New("postgres url is not configured")

type Config struct {
	URL            string `split_words:"true"`
	ConnectTimeout int    `split_words:"true" default:"10"`
}

// Enabled reports whether a connection string is configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

// ConnConfig parses the URL into a pgx connection config.
func (c *Config) ConnConfig() (*pgx.ConnConfig, error) {
	if c.URL == "" {
		return nil, ErrNoURL
	}
	cfg, err := pgx.ParseConfig(c.URL)
	if err != nil {
		return nil, err
	}
	if c.ConnectTimeout > 0 {
		cfg.ConnectTimeout = time.Duration(c.ConnectTimeout) * time.Second
	}
	return cfg, nil
}

// Connect opens a single connection. Callers own the returned connection.
func (c *Config) Connect(ctx context.Context) (*pgx.Conn, error) {
	cfg, err := c.ConnConfig()
	if err != nil {
		return nil, err
	}
	return pgx.ConnectConfig(ctx, cfg)
}
