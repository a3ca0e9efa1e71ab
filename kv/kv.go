// Package kv is the wallet-side key-value store: chat transcript, local
// transaction history, the account key and the backend session.
package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Well-known keys.
const (
	KeyChatHistory         = "chatHistory"
	KeyTransactionHistory  = "transactionHistory"
	KeyUserPrivateKey      = "userPrivateKey"
	KeyUserID              = "userId"
	KeyUserToken           = "userToken"
	KeyFaucetCooldownUntil = "faucetCooldownUntil"
	KeyConversationState   = "conversationState"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a SQLite-backed key-value store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	sealer *sealer
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	passphrase string
	logger     *zap.Logger
}

// WithEncryption seals every value with a key derived from passphrase.
// An empty passphrase leaves values in plaintext.
func WithEncryption(passphrase string) Option {
	return func(o *options) { o.passphrase = passphrase }
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	s := &Store{db: db, logger: o.logger}

	if o.passphrase == "" {
		s.logger.Warn("local store is not encrypted; private key and session token are stored in plaintext",
			zap.String("path", path))
		return s, nil
	}

	salt, err := s.loadSalt(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.sealer, err = newSealer(o.passphrase, salt)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Encrypted reports whether values are sealed at rest.
func (s *Store) Encrypted() bool {
	return s.sealer != nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}

	if isSealed(raw) {
		if s.sealer == nil {
			return "", fmt.Errorf("get %s: %w", key, ErrEncrypted)
		}
		return s.sealer.open(raw)
	}
	return raw, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealer != nil {
		sealed, err := s.sealer.seal(value)
		if err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		value = sealed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value under key into v.
func (s *Store) GetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const saltKey = "__kv_salt"

// loadSalt returns the persisted key-derivation salt, creating it on first use.
// The salt row itself is never sealed.
func (s *Store) loadSalt(ctx context.Context) ([]byte, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, saltKey).Scan(&encoded)
	if err == nil {
		return decodeSalt(encoded)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load salt: %w", err)
	}

	salt, encoded, err := newSalt()
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)`,
		saltKey, encoded, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}
