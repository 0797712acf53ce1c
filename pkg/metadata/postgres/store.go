package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/metadata"
)

// PostgresDocumentStore implements metadata.DocumentStore on PostgreSQL.
//
// Records live in a single table (prefixed per environment). Timestamps come
// from the database clock via Now, so that every replica agrees on ordering.
type PostgresDocumentStore struct {
	pool  *pgxpool.Pool
	table string
}

// PostgresDocumentStoreConfig configures the PostgreSQL store.
type PostgresDocumentStoreConfig struct {
	// ConnString is a libpq-style URL or DSN. Required.
	ConnString string `mapstructure:"conn_string"`

	// TablePrefix is prepended to the entities table name (e.g. "dev_").
	TablePrefix string `mapstructure:"table_prefix"`

	// MaxConns bounds the pool size. Default: 10.
	MaxConns int32 `mapstructure:"max_conns"`

	// MinConns keeps idle connections warm. Default: 1.
	MinConns int32 `mapstructure:"min_conns"`

	// AutoMigrate creates the table and indexes when missing.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// NewPostgresDocumentStore connects to PostgreSQL and optionally migrates.
func NewPostgresDocumentStore(ctx context.Context, config PostgresDocumentStoreConfig) (*PostgresDocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.ConnString == "" {
		return nil, fmt.Errorf("postgres document store: conn_string is required")
	}

	poolCfg, err := pgxpool.ParseConfig(config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MaxConns = config.MaxConns
	if poolCfg.MaxConns <= 0 {
		poolCfg.MaxConns = 10
	}
	poolCfg.MinConns = config.MinConns
	if poolCfg.MinConns <= 0 {
		poolCfg.MinConns = 1
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresDocumentStore{
		pool:  pool,
		table: config.TablePrefix + "entities",
	}

	if config.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("Postgres document store ready: table=%s max_conns=%d", store.table, poolCfg.MaxConns)
	return store, nil
}

// Migrate creates the entities table and its indexes if they do not exist.
func (s *PostgresDocumentStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.table) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *PostgresDocumentStore) Insert(ctx context.Context, e *metadata.Entity) (string, error) {
	now, err := s.Now(ctx)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	rec := metadata.PrepareInsert(e, id, now)
	if err := metadata.ValidateEntity(rec); err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.table, entityColumns)

	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.OwnerID, rec.ParentID, string(rec.Kind), rec.Name, rec.MimeType, rec.SizeBytes,
		rec.ContentRef, rec.ContentURL, rec.Starred, rec.InTrash, rec.DeletedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

func (s *PostgresDocumentStore) Get(ctx context.Context, id string) (*metadata.Entity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, entityColumns, s.table)
	return scanEntity(s.pool.QueryRow(ctx, query, id), id)
}

// Update loads, patches, validates and rewrites the row inside a transaction.
func (s *PostgresDocumentStore) Update(ctx context.Context, id string, patch metadata.Patch) error {
	if patch.UpdatedAt.IsZero() {
		now, err := s.Now(ctx)
		if err != nil {
			return err
		}
		patch.UpdatedAt = now
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, entityColumns, s.table)
		rec, err := scanEntity(tx.QueryRow(ctx, query, id), id)
		if err != nil {
			return err
		}

		patch.Apply(rec)
		if err := metadata.ValidateEntity(rec); err != nil {
			return err
		}

		update := fmt.Sprintf(`
			UPDATE %s
			SET name = $1, starred = $2, in_trash = $3, deleted_at = $4, updated_at = $5
			WHERE id = $6
		`, s.table)
		if _, err := tx.Exec(ctx, update, rec.Name, rec.Starred, rec.InTrash, rec.DeletedAt, rec.UpdatedAt, id); err != nil {
			return fmt.Errorf("update entity: %w", err)
		}
		return nil
	})
}

func (s *PostgresDocumentStore) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return metadata.NewNotFoundError(id)
	}
	return nil
}

func (s *PostgresDocumentStore) Query(ctx context.Context, q metadata.Query) ([]*metadata.Entity, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sql, args := buildSelect(s.table, q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	result := make([]*metadata.Entity, 0)
	for rows.Next() {
		rec, err := scanEntity(rows, "")
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return result, nil
}

// Now returns the database clock.
func (s *PostgresDocumentStore) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.pool.QueryRow(ctx, `SELECT now()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("read database clock: %w", err)
	}
	return now.UTC(), nil
}

func (s *PostgresDocumentStore) ContentRefs(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT DISTINCT content_ref FROM %s WHERE content_ref <> ''`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query content refs: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]struct{})
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan content ref: %w", err)
		}
		refs[ref] = struct{}{}
	}
	return refs, rows.Err()
}

func (s *PostgresDocumentStore) Close() error {
	s.pool.Close()
	return nil
}

func scanEntity(row pgx.Row, id string) (*metadata.Entity, error) {
	var (
		rec  metadata.Entity
		kind string
	)
	err := row.Scan(
		&rec.ID, &rec.OwnerID, &rec.ParentID, &kind, &rec.Name, &rec.MimeType, &rec.SizeBytes,
		&rec.ContentRef, &rec.ContentURL, &rec.Starred, &rec.InTrash, &rec.DeletedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, metadata.NewNotFoundError(id)
		}
		return nil, fmt.Errorf("scan entity: %w", err)
	}

	rec.Kind = metadata.Kind(kind)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.DeletedAt != nil {
		t := rec.DeletedAt.UTC()
		rec.DeletedAt = &t
	}
	return &rec, nil
}
