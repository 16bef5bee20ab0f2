// Package promptcache stores generated image prompts in SQLite so identical
// scenes are not paid for twice across runs.
package promptcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the cache database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create prompt cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open prompt cache: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping prompt cache: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("prompt cache migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range migrations {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if s.logger != nil {
			s.logger.Debug("applied migration", "name", name)
		}
	}
	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var exists int
	err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&exists)
	if err != nil {
		return false
	}
	var applied int
	err = s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// Key identifies a prompt by the model that produced it and its input.
func Key(model, language, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + strings.ToLower(language) + "\x00" + strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached prompt for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var prompt string
	err := s.conn.QueryRowContext(ctx, "SELECT prompt FROM prompts WHERE key = ?", key).Scan(&prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prompt cache get: %w", err)
	}
	if _, err := s.conn.ExecContext(ctx,
		"UPDATE prompts SET hits = hits + 1, used_at = datetime('now') WHERE key = ?", key); err != nil && s.logger != nil {
		s.logger.Debug("prompt cache touch failed", "error", err)
	}
	return prompt, true, nil
}

// Put stores prompt under key, replacing an older entry.
func (s *Store) Put(ctx context.Context, key, model, language, prompt string) error {
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO prompts (key, model, language, prompt) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET prompt = excluded.prompt, used_at = datetime('now')`,
		key, model, language, prompt)
	if err != nil {
		return fmt.Errorf("prompt cache put: %w", err)
	}
	return nil
}

// Len reports the number of cached prompts.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM prompts").Scan(&n); err != nil {
		return 0, fmt.Errorf("prompt cache count: %w", err)
	}
	return n, nil
}

// Generator is the prompt source being cached.
type Generator interface {
	GeneratePrompt(ctx context.Context, text, language string) (string, error)
}

// Cached serves prompts from the store and falls through to Next on a miss.
// Cache failures are logged and never fail a prompt.
type Cached struct {
	Next   Generator
	Store  *Store
	Model  string
	Logger *slog.Logger
}

func (c *Cached) GeneratePrompt(ctx context.Context, text, language string) (string, error) {
	key := Key(c.Model, language, text)
	if p, ok, err := c.Store.Get(ctx, key); err != nil {
		c.warn("prompt cache lookup failed", err)
	} else if ok {
		return p, nil
	}

	p, err := c.Next.GeneratePrompt(ctx, text, language)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p) != "" {
		if err := c.Store.Put(ctx, key, c.Model, language, p); err != nil {
			c.warn("prompt cache store failed", err)
		}
	}
	return p, nil
}

func (c *Cached) warn(msg string, err error) {
	if c.Logger != nil {
		c.Logger.Warn(msg, "error", err)
	}
}
