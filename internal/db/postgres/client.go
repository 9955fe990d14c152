// Package postgres runs guarded read-only queries and catalog introspection over pgx.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds connection parameters.
type Config struct {
	DSN          string
	Schema       string
	MaxConns     int32
	QueryTimeout time.Duration
}

// pool is the subset of *pgxpool.Pool the client uses.
type pool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Client opens its pool on first use and keeps it for the process lifetime.
// A failed open is retried on the next call.
type Client struct {
	cfg     Config
	connect func(Config) (pool, error)

	mu   sync.Mutex
	pool pool
}

// New creates a Client. No connection is made until the first query.
func New(cfg Config) *Client {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 10 * time.Second
	}
	return &Client{cfg: cfg, connect: openPool}
}

func openPool(cfg Config) (pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	p, err := pgxpool.NewWithConfig(context.Background(), pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return p, nil
}

func (c *Client) acquire() (pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		return c.pool, nil
	}
	p, err := c.connect(c.cfg)
	if err != nil {
		return nil, err
	}
	c.pool = p
	return p, nil
}

// Ping checks connectivity, opening the pool if needed.
func (c *Client) Ping(ctx context.Context) error {
	p, err := c.acquire()
	if err != nil {
		return err
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool if it was opened.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

// readOnly runs fn in a read-only transaction bounded by the query timeout.
func (c *Client) readOnly(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	p, err := c.acquire()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QueryTimeout)
	defer cancel()

	tx, err := p.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	return fn(ctx, tx)
}
