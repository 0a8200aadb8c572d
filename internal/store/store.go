// Package store persists saved map fields in Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/config"
	"github.com/JonMunkholm/mapfield/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS map_fields (
	id             UUID PRIMARY KEY,
	name           TEXT NOT NULL,
	mapconfig_json TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const columns = "id, name, mapconfig_json, created_at, updated_at"

const (
	insertSQL = "INSERT INTO map_fields (id, name, mapconfig_json) VALUES ($1, $2, $3) RETURNING " + columns
	selectSQL = "SELECT " + columns + " FROM map_fields WHERE id = $1"
	listSQL   = "SELECT " + columns + " FROM map_fields ORDER BY updated_at DESC, name"
	updateSQL = "UPDATE map_fields SET name = $2, mapconfig_json = $3, updated_at = now() WHERE id = $1 RETURNING " + columns
	deleteSQL = "DELETE FROM map_fields WHERE id = $1"
)

// Store implements core.MapStore on top of a pgx connection.
type Store struct {
	db DBTX
}

var _ core.MapStore = (*Store)(nil)

// New creates a store using db for all queries.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Open builds a connection pool from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the map_fields table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) CreateMapField(ctx context.Context, name, configJSON string) (core.MapField, error) {
	id := pgtype.UUID{Bytes: uuid.New(), Valid: true}

	field, err := scanField(s.db.QueryRow(ctx, insertSQL, id, name, configJSON))
	if err != nil {
		return core.MapField{}, fmt.Errorf("create map field: %w", err)
	}
	return field, nil
}

func (s *Store) GetMapField(ctx context.Context, id string) (core.MapField, error) {
	key, err := parseID(id)
	if err != nil {
		return core.MapField{}, err
	}

	field, err := scanField(s.db.QueryRow(ctx, selectSQL, key))
	if err != nil {
		return core.MapField{}, notFound(id, err)
	}
	return field, nil
}

func (s *Store) ListMapFields(ctx context.Context) ([]core.MapField, error) {
	rows, err := s.db.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list map fields: %w", err)
	}

	fields, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.MapField, error) {
		return scanField(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list map fields: %w", err)
	}
	return fields, nil
}

func (s *Store) UpdateMapField(ctx context.Context, id, name, configJSON string) (core.MapField, error) {
	key, err := parseID(id)
	if err != nil {
		return core.MapField{}, err
	}

	field, err := scanField(s.db.QueryRow(ctx, updateSQL, key, name, configJSON))
	if err != nil {
		return core.MapField{}, notFound(id, err)
	}
	return field, nil
}

func (s *Store) DeleteMapField(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, deleteSQL, key)
	if err != nil {
		return fmt.Errorf("delete map field %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("map field %s: %w", id, core.ErrMapNotFound)
	}
	return nil
}

// parseID rejects IDs that cannot name a row.
func parseID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("map field %q: %w", id, core.ErrMapNotFound)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("map field %s: %w", id, core.ErrMapNotFound)
	}
	return fmt.Errorf("map field %s: %w", id, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (core.MapField, error) {
	var (
		id               pgtype.UUID
		field            core.MapField
		created, updated pgtype.Timestamptz
	)
	if err := row.Scan(&id, &field.Name, &field.ConfigJSON, &created, &updated); err != nil {
		return core.MapField{}, err
	}

	field.ID = uuid.UUID(id.Bytes).String()
	field.CreatedAt = created.Time
	field.UpdatedAt = updated.Time
	return field, nil
}
