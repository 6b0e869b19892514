/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store (documents + conversion links) using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  generic.DocumentStore: Document snapshots with optimistic versioning
  generic.LinkStore:     Append-only conversion links

OPTIMISTIC VERSIONING:
  Save() updates a row only when the stored version matches the caller's
  snapshot:

    UPDATE documents SET ... , version = version + 1
    WHERE id = ? AND version = ? AND deleted = 0

  Zero rows affected means either the document is gone
  (ErrDocumentNotFound) or someone else wrote first (ErrVersionConflict).
  The caller re-fetches and re-checks its guards before retrying.

APPEND-ONLY LINKS:
  The conversion_links table has no UPDATE and no DELETE statements.
  Corrections happen through new documents (returns, refunds), never by
  editing consumption history.

DOCUMENT BODIES:
  Line items, discounts and link references are stored as a JSON body
  (through the factory codec, so amounts stay decimal strings). Type,
  status and version are separate columns so listings and the version
  check never parse JSON.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/documents.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - factory/document.go: The JSON codec used for document bodies
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/factory"
	"github.com/warp/document-engine/generic"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db    *sql.DB
	codec *factory.DocumentFactory
	mu    sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, codec: factory.NewDocumentFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Document snapshots (body as JSON, hot columns extracted)
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		status TEXT NOT NULL,
		currency TEXT NOT NULL,
		body_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_type
		ON documents(doc_type) WHERE deleted = 0;
	CREATE INDEX IF NOT EXISTS idx_documents_type_status
		ON documents(doc_type, status) WHERE deleted = 0;

	-- Conversion links (append-only consumption history)
	CREATE TABLE IF NOT EXISTS conversion_links (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		source_document_id TEXT NOT NULL,
		source_line_id TEXT NOT NULL,
		derived_document_id TEXT NOT NULL,
		derived_line_id TEXT,
		quantity TEXT,
		amount_value TEXT,
		amount_currency TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_source
		ON conversion_links(source_document_id);
	CREATE INDEX IF NOT EXISTS idx_links_derived
		ON conversion_links(derived_document_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE (generic.DocumentStore interface)
// =============================================================================

// Create persists a new document at version 1.
func (s *Store) Create(ctx context.Context, doc *generic.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := s.marshalBody(doc)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !doc.CreatedAt.IsZero() {
		createdAt = doc.CreatedAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO documents
		(id, doc_type, status, currency, body_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		string(doc.ID),
		doc.Type.TypeID(),
		string(doc.Status),
		string(doc.Currency),
		body,
		createdAt,
		now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return generic.ErrDocumentExists
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	doc.Version = 1
	return nil
}

// Save persists a mutated document, enforcing the version check.
func (s *Store) Save(ctx context.Context, doc *generic.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := s.marshalBody(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET status = ?, currency = ?, body_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND deleted = 0
	`
	res, err := s.db.ExecContext(ctx, query,
		string(doc.Status),
		string(doc.Currency),
		body,
		time.Now().UTC().Format(time.RFC3339),
		string(doc.ID),
		doc.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if affected == 0 {
		// Either the document is gone or someone else wrote first.
		var exists int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM documents WHERE id = ? AND deleted = 0",
			string(doc.ID),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		if exists == 0 {
			return generic.ErrDocumentNotFound
		}
		return generic.ErrVersionConflict
	}

	doc.Version++
	return nil
}

// Get returns the current snapshot of a document.
func (s *Store) Get(ctx context.Context, id generic.DocumentID) (*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT body_json, version, created_at, updated_at
		FROM documents
		WHERE id = ? AND deleted = 0
	`
	row := s.db.QueryRowContext(ctx, query, string(id))
	return s.scanDocument(row)
}

// ListByType returns documents of one type, newest first.
func (s *Store) ListByType(ctx context.Context, typeID string) ([]*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT body_json, version, created_at, updated_at
		FROM documents
		WHERE doc_type = ? AND deleted = 0
		ORDER BY created_at DESC
	`
	return s.queryDocuments(ctx, query, typeID)
}

// ListByStatus returns documents of one type in one state.
func (s *Store) ListByStatus(ctx context.Context, typeID string, status generic.State) ([]*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT body_json, version, created_at, updated_at
		FROM documents
		WHERE doc_type = ? AND status = ? AND deleted = 0
		ORDER BY created_at DESC
	`
	return s.queryDocuments(ctx, query, typeID, string(status))
}

// Delete soft-deletes a document. The workflow's CanDelete check is the
// caller's responsibility; the store only records the deletion.
func (s *Store) Delete(ctx context.Context, id generic.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0",
		time.Now().UTC().Format(time.RFC3339),
		string(id),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if affected == 0 {
		return generic.ErrDocumentNotFound
	}
	return nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]*generic.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*generic.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDocument(row rowScanner) (*generic.Document, error) {
	var (
		body      string
		version   int64
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&body, &version, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, generic.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	var dj factory.DocumentJSON
	if err := json.Unmarshal([]byte(body), &dj); err != nil {
		return nil, fmt.Errorf("failed to decode document body: %w", err)
	}
	doc, err := s.codec.FromJSON(dj)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document body: %w", err)
	}

	// Columns are the source of truth for the concurrency token and
	// timestamps, not the JSON body.
	doc.Version = version
	doc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return doc, nil
}

func (s *Store) marshalBody(doc *generic.Document) (string, error) {
	body, err := json.Marshal(s.codec.ToJSON(doc))
	if err != nil {
		return "", fmt.Errorf("failed to encode document body: %w", err)
	}
	return string(body), nil
}

// =============================================================================
// LINK STORE (generic.LinkStore interface)
// =============================================================================

// AppendLinks persists a batch of conversion links atomically.
func (s *Store) AppendLinks(ctx context.Context, links []generic.ConversionLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO conversion_links
		(id, kind, source_document_id, source_line_id,
		 derived_document_id, derived_line_id, quantity,
		 amount_value, amount_currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, link := range links {
		createdAt := link.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := sqlTx.ExecContext(ctx, query,
			string(link.ID),
			string(link.Kind),
			string(link.SourceDocumentID),
			string(link.SourceLineID),
			string(link.DerivedDocumentID),
			string(link.DerivedLineID),
			link.Quantity.String(),
			link.Amount.Value.String(),
			string(link.Amount.Currency),
			createdAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to append link: %w", err)
		}
	}

	return sqlTx.Commit()
}

// LinksBySource returns all links consuming a source document.
func (s *Store) LinksBySource(ctx context.Context, sourceID generic.DocumentID) ([]generic.ConversionLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, kind, source_document_id, source_line_id,
		       derived_document_id, derived_line_id, quantity,
		       amount_value, amount_currency, created_at
		FROM conversion_links
		WHERE source_document_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryLinks(ctx, query, string(sourceID))
}

// LinksByDerived returns all links recorded by a derived document.
func (s *Store) LinksByDerived(ctx context.Context, derivedID generic.DocumentID) ([]generic.ConversionLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, kind, source_document_id, source_line_id,
		       derived_document_id, derived_line_id, quantity,
		       amount_value, amount_currency, created_at
		FROM conversion_links
		WHERE derived_document_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryLinks(ctx, query, string(derivedID))
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]generic.ConversionLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []generic.ConversionLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func scanLink(rows *sql.Rows) (generic.ConversionLink, error) {
	var (
		link           generic.ConversionLink
		id             string
		kind           string
		sourceDoc      string
		sourceLine     string
		derivedDoc     string
		derivedLine    sql.NullString
		quantity       sql.NullString
		amountValue    sql.NullString
		amountCurrency sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&id, &kind, &sourceDoc, &sourceLine,
		&derivedDoc, &derivedLine, &quantity,
		&amountValue, &amountCurrency, &createdAt,
	)
	if err != nil {
		return link, fmt.Errorf("failed to scan link: %w", err)
	}

	link.ID = generic.LinkID(id)
	link.Kind = generic.LinkKind(kind)
	link.SourceDocumentID = generic.DocumentID(sourceDoc)
	link.SourceLineID = generic.LineItemID(sourceLine)
	link.DerivedDocumentID = generic.DocumentID(derivedDoc)
	link.DerivedLineID = generic.LineItemID(derivedLine.String)

	if quantity.Valid && quantity.String != "" {
		q, err := decimal.NewFromString(quantity.String)
		if err != nil {
			return link, fmt.Errorf("failed to parse link quantity: %w", err)
		}
		link.Quantity = q
	}
	if amountValue.Valid && amountValue.String != "" && amountCurrency.Valid {
		v, err := decimal.NewFromString(amountValue.String)
		if err != nil {
			return link, fmt.Errorf("failed to parse link amount: %w", err)
		}
		link.Amount = generic.NewMoney(v, generic.Currency(amountCurrency.String))
	}

	link.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return link, nil
}
