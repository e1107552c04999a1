package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/alexnthnz/plant-care/internal/collection"
	"github.com/alexnthnz/plant-care/internal/config"
)

// PostgresDB wraps sql.DB for PostgreSQL operations
type PostgresDB struct {
	*sql.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg config.DatabaseConfig) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{DB: db}, nil
}

// InitSchema initializes the database schema
func (db *PostgresDB) InitSchema() error {
	schema := `
	-- One row per collection; the document is the persisted
	-- {myPlants, notificationPreferences} object.
	CREATE TABLE IF NOT EXISTS plant_collections (
		id VARCHAR(255) PRIMARY KEY,
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *PostgresDB) Close() error {
	return db.DB.Close()
}

// StateRepository stores a plant collection as a single JSONB document.
type StateRepository struct {
	db  *sql.DB
	key string
	now func() time.Time
}

// NewStateRepository returns a repository for the collection stored under key.
func NewStateRepository(db *sql.DB, key string) *StateRepository {
	return &StateRepository{db: db, key: key, now: time.Now}
}

// Load reads the saved collection, or nil if none exists.
func (r *StateRepository) Load(ctx context.Context) (*collection.State, error) {
	var document []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT document FROM plant_collections WHERE id = $1`, r.key,
	).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plant collection: %w", err)
	}

	var state collection.State
	if err := json.Unmarshal(document, &state); err != nil {
		return nil, fmt.Errorf("failed to decode plant collection: %w", err)
	}
	return &state, nil
}

// Save replaces the saved collection.
func (r *StateRepository) Save(ctx context.Context, state collection.State) error {
	if state.MyPlants == nil {
		state.MyPlants = []collection.Plant{}
	}
	document, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode plant collection: %w", err)
	}

	query := `
		INSERT INTO plant_collections (id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, r.key, document, r.now()); err != nil {
		return fmt.Errorf("failed to save plant collection: %w", err)
	}
	return nil
}
