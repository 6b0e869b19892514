/*
registry.go - Workflow registration and lookup

PURPOSE:
  Provides a registry mapping document-type IDs to their workflows and
  conversion rules. Domain packages register on init(); the boundary
  layer (API, store) resolves string type tags back to concrete
  workflows without the generic package knowing any domain.

HOW IT WORKS:
  1. Domain packages define their DocumentType implementations
  2. Domain packages build their Workflow tables and register them
  3. The engine dispatches CanTransition/Apply through the registry

WHY A REGISTRY:
  - Generic package stays domain-agnostic
  - New document types are added by declaring a table, not subclassing
  - Clean deserialization from stored type tags

PROGRAMMER ERRORS:
  Looking up an unregistered type via the Must variants panics - an
  unknown document type is a defect, not a business-rule violation.

SEE ALSO:
  - machine.go: Workflow definition
  - trade/types.go, finance/types.go: registration sites
*/
package generic

import (
	"fmt"
	"sync"
)

var (
	workflowRegistry   = make(map[string]*Workflow)
	conversionRegistry = make(map[string]ConversionSpec)
	registryMu         sync.RWMutex
)

// =============================================================================
// WORKFLOWS
// =============================================================================

// RegisterWorkflow adds a workflow to the global registry, keyed by its
// document type. Call from domain package init() functions.
func RegisterWorkflow(w *Workflow) {
	registryMu.Lock()
	defer registryMu.Unlock()
	workflowRegistry[w.DocType().TypeID()] = w
}

// LookupWorkflow finds a registered workflow by document type ID.
// Returns nil if not found.
func LookupWorkflow(typeID string) *Workflow {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return workflowRegistry[typeID]
}

// MustLookupWorkflow finds a registered workflow or panics.
func MustLookupWorkflow(typeID string) *Workflow {
	w := LookupWorkflow(typeID)
	if w == nil {
		panic(fmt.Sprintf("workflow not registered for document type: %s", typeID))
	}
	return w
}

// WorkflowFor returns the workflow governing a document, or panics for
// an unregistered type (programmer error).
func WorkflowFor(doc *Document) *Workflow {
	return MustLookupWorkflow(doc.Type.TypeID())
}

// ListWorkflows returns all registered workflows.
func ListWorkflows() []*Workflow {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]*Workflow, 0, len(workflowRegistry))
	for _, w := range workflowRegistry {
		out = append(out, w)
	}
	return out
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func conversionKey(sourceTypeID, targetTypeID string) string {
	return sourceTypeID + "->" + targetTypeID
}

// RegisterConversion adds a conversion rule to the global registry.
// Duplicate source/target pairs are a programmer error.
func RegisterConversion(spec ConversionSpec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	key := conversionKey(spec.Source.TypeID(), spec.Target.TypeID())
	if _, exists := conversionRegistry[key]; exists {
		panic(fmt.Sprintf("conversion already registered: %s", key))
	}
	conversionRegistry[key] = spec
}

// LookupConversion finds the rule for a source/target pair.
func LookupConversion(sourceTypeID, targetTypeID string) (ConversionSpec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	spec, ok := conversionRegistry[conversionKey(sourceTypeID, targetTypeID)]
	return spec, ok
}

// MustLookupConversion finds a conversion rule or panics.
func MustLookupConversion(sourceTypeID, targetTypeID string) ConversionSpec {
	spec, ok := LookupConversion(sourceTypeID, targetTypeID)
	if !ok {
		panic(fmt.Sprintf("conversion not registered: %s", conversionKey(sourceTypeID, targetTypeID)))
	}
	return spec
}
