package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

const documentsSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		body       JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`

// Postgres stores documents as JSONB rows of a single documents table
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to Postgres and creates the documents table
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, documentsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// GetDB returns the underlying database connection
func (p *Postgres) GetDB() *sqlx.DB {
	return p.db
}

func (p *Postgres) Find(ctx context.Context, collection string, filter Filter) ([]models.Document, error) {
	query := strings.Builder{}
	query.WriteString("SELECT body FROM documents WHERE collection = $1")
	args := []interface{}{collection}
	for field, value := range filter {
		args = append(args, field, value)
		fmt.Fprintf(&query, " AND body->>($%d::text) = $%d", len(args)-1, len(args))
	}
	query.WriteString(" ORDER BY created_at, id")

	var rows []types.JSONText
	if err := p.db.SelectContext(ctx, &rows, query.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		var doc models.Document
		if err := json.Unmarshal(row, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (p *Postgres) FindByID(ctx context.Context, collection, id string) (models.Document, error) {
	var body types.JSONText
	err := p.db.GetContext(ctx, &body,
		"SELECT body FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", collection, id, err)
	}

	var doc models.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", collection, err)
	}
	return doc, nil
}

func (p *Postgres) Insert(ctx context.Context, collection string, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)",
		collection, doc[models.FieldID], types.JSONText(body))
	if err != nil {
		return p.translate(collection, err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	res, err := p.db.ExecContext(ctx,
		"UPDATE documents SET body = $3, updated_at = NOW() WHERE collection = $1 AND id = $2",
		collection, id, types.JSONText(body))
	if err != nil {
		return p.translate(collection, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	res, err := p.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureIndexes creates one partial unique expression index per field
func (p *Postgres) EnsureIndexes(ctx context.Context, collection string, unique []string) error {
	for _, field := range unique {
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS %s ON documents ((body->>%s)) WHERE collection = %s",
			pq.QuoteIdentifier(indexName(collection, field)),
			pq.QuoteLiteral(field),
			pq.QuoteLiteral(collection))
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create unique index on %s.%s: %w", collection, field, err)
		}
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// translate maps unique violations to DuplicateKeyError
func (p *Postgres) translate(collection string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return fmt.Errorf("failed to write %s document: %w", collection, err)
	}

	dup := &DuplicateKeyError{Collection: collection}
	prefix := collection + "_"
	if strings.HasPrefix(pqErr.Constraint, prefix) && strings.HasSuffix(pqErr.Constraint, "_key") {
		dup.Field = strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, prefix), "_key")
	} else if pqErr.Constraint == "documents_pkey" {
		dup.Field = models.FieldID
	}
	return dup
}
