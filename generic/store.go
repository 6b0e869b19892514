/*
store.go - Persistence interfaces for documents and conversion links

PURPOSE:
  Defines the boundary between the pure core and the database. The core
  computes intended mutations; the store is the single arbiter of whether
  a mutation is still valid against the freshest snapshot.

OPTIMISTIC CONCURRENCY:
  Documents carry a Version. Save() must reject a write whose version
  does not match the stored one with ErrVersionConflict - the caller
  re-fetches, re-checks the guards, and retries. This is how lost
  updates are prevented without the core holding any locks.

LINKS ARE APPEND-ONLY:
  Conversion links record consumption history. They are never updated
  or deleted; a correction is a new document (e.g. a return), not an
  edit of history.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - generic/store: in-memory, for tests and demos

SEE ALSO:
  - convert.go: produces the links this store persists
  - store/sqlite/sqlite.go: concrete implementation
*/
package generic

import "context"

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore persists document snapshots with optimistic versioning.
type DocumentStore interface {
	// Create persists a new document at version 1. An ID that is already
	// taken returns ErrDocumentExists.
	Create(ctx context.Context, doc *Document) error

	// Save persists a mutated document. The write succeeds only when the
	// stored version equals doc.Version; on success the version is
	// incremented. A mismatch returns ErrVersionConflict.
	Save(ctx context.Context, doc *Document) error

	// Get returns the current snapshot, or ErrDocumentNotFound.
	Get(ctx context.Context, id DocumentID) (*Document, error)

	// ListByType returns documents of one type, newest first.
	ListByType(ctx context.Context, typeID string) ([]*Document, error)

	// ListByStatus returns documents of one type in one state.
	ListByStatus(ctx context.Context, typeID string, status State) ([]*Document, error)

	// Delete soft-deletes a document. Callers must have verified
	// CanDelete against the workflow first; the store only records it.
	Delete(ctx context.Context, id DocumentID) error
}

// =============================================================================
// LINK STORE - Append-only consumption history
// =============================================================================

// LinkStore persists conversion links. Append-only: no update, no delete.
type LinkStore interface {
	// AppendLinks persists links atomically with each other.
	AppendLinks(ctx context.Context, links []ConversionLink) error

	// LinksBySource returns all links consuming a source document.
	LinksBySource(ctx context.Context, sourceID DocumentID) ([]ConversionLink, error)

	// LinksByDerived returns all links recorded by a derived document.
	LinksByDerived(ctx context.Context, derivedID DocumentID) ([]ConversionLink, error)
}

// Store bundles both interfaces; the API layer and the SQLite store
// implement it together so a conversion can persist the derived
// document and its links against one backend.
type Store interface {
	DocumentStore
	LinkStore
}
