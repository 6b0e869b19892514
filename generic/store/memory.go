// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	documents map[generic.DocumentID]*generic.Document
	deleted   map[generic.DocumentID]bool
	links     []generic.ConversionLink
}

func NewMemory() *Memory {
	return &Memory{
		documents: make(map[generic.DocumentID]*generic.Document),
		deleted:   make(map[generic.DocumentID]bool),
	}
}

var _ generic.Store = (*Memory)(nil)

// Create refuses an ID that is already taken, including soft-deleted
// documents, matching the primary key behavior of the SQLite store.
func (m *Memory) Create(_ context.Context, doc *generic.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[doc.ID]; ok {
		return generic.ErrDocumentExists
	}

	doc.Version = 1
	m.documents[doc.ID] = doc.Clone()
	return nil
}

// Save enforces the optimistic version check: the incoming snapshot must
// carry the stored version or the write is refused.
func (m *Memory) Save(_ context.Context, doc *generic.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.documents[doc.ID]
	if !ok || m.deleted[doc.ID] {
		return generic.ErrDocumentNotFound
	}
	if current.Version != doc.Version {
		return generic.ErrVersionConflict
	}

	doc.Version++
	m.documents[doc.ID] = doc.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id generic.DocumentID) (*generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[id]
	if !ok || m.deleted[id] {
		return nil, generic.ErrDocumentNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) ListByType(_ context.Context, typeID string) ([]*generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*generic.Document
	for id, doc := range m.documents {
		if m.deleted[id] {
			continue
		}
		if doc.Type.TypeID() == typeID {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) ListByStatus(ctx context.Context, typeID string, status generic.State) ([]*generic.Document, error) {
	docs, err := m.ListByType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id generic.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[id]; !ok || m.deleted[id] {
		return generic.ErrDocumentNotFound
	}
	m.deleted[id] = true
	return nil
}

// AppendLinks is append-only; links are never updated or removed.
func (m *Memory) AppendLinks(_ context.Context, links []generic.ConversionLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, links...)
	return nil
}

func (m *Memory) LinksBySource(_ context.Context, sourceID generic.DocumentID) ([]generic.ConversionLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.ConversionLink
	for _, l := range m.links {
		if l.SourceDocumentID == sourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) LinksByDerived(_ context.Context, derivedID generic.DocumentID) ([]generic.ConversionLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.ConversionLink
	for _, l := range m.links {
		if l.DerivedDocumentID == derivedID {
			out = append(out, l)
		}
	}
	return out, nil
}
