/*
machine.go - Generic lifecycle state machine

PURPOSE:
  A reusable transition-table abstraction: states, guarded transitions,
  declared side effects. Each document type supplies its own table; the
  engine itself knows nothing about quotations or invoices.

TRANSITION TABLE:
  A Workflow maps (state, action) -> { guards, effects, next state }.
  Lookups for undefined pairs FAIL CLOSED with a TransitionError naming
  "UndefinedTransition" - never a silent no-op.

CHECK vs APPLY:
  CanTransition evaluates the guards against the current document plus
  externally supplied context. Apply re-checks the guards from scratch:
  a stale CanTransition result is never trusted, because the document
  may have changed between check and apply. Apply is therefore safe to
  call standalone, and the two never diverge for an unchanged document.

SIDE EFFECTS:
  Apply does NOT perform I/O. It returns the next state plus a list of
  SideEffect declarations; the caller's persistence layer executes them
  and is the single arbiter of whether the mutation is still valid
  (version checks live there).

TERMINAL STATES:
  A state with no outgoing transitions is terminal ("closed", "void",
  "reconciled"). Every action from a terminal state is refused, and the
  refusal is idempotent.

FAILURE SEMANTICS:
  Business-rule violations return *TransitionError naming the violated
  guard. Only programmer errors (duplicate table entries, unknown
  document types) panic.

SEE ALSO:
  - registry.go: workflow lookup by document type
  - trade/workflows.go, finance/workflows.go: the concrete tables
*/
package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// GUARDS AND CONTEXT
// =============================================================================

// TransitionContext carries externally supplied facts a guard may need:
// conversion links touching the document, payment amounts, the clock.
// The engine never fetches these itself.
type TransitionContext struct {
	Now   time.Time
	Links []ConversionLink
	Facts map[string]any
}

// Fact returns a context fact by key, or nil.
func (tc TransitionContext) Fact(key string) any {
	if tc.Facts == nil {
		return nil
	}
	return tc.Facts[key]
}

// GuardFunc is a predicate over the document and context. A nil return
// means the guard holds; a non-nil error describes why it does not.
type GuardFunc func(doc *Document, tc TransitionContext) error

// Guard is a named predicate. The name is what TransitionError reports,
// so it should read like a rule: "HasLineItems", "NotFullyReceived".
type Guard struct {
	Name  string
	Check GuardFunc
}

// EffectsFunc declares the side effects of a transition. Run only after
// all guards pass.
type EffectsFunc func(doc *Document, tc TransitionContext) []SideEffect

// =============================================================================
// TRANSITIONS AND WORKFLOW
// =============================================================================

// Transition is a directed edge (From, Action) -> To with optional guards
// and side-effect declarations.
type Transition struct {
	From    State
	Action  Action
	To      State
	Guards  []Guard
	Effects EffectsFunc
}

type stateAction struct {
	state  State
	action Action
}

// Workflow is the complete transition table for one document type.
type Workflow struct {
	docType DocumentType
	initial State

	table map[stateAction]Transition

	// States whose workflow permits field edits / deletion. Typically
	// only the initial draft-like state.
	editable  map[State]bool
	deletable map[State]bool
}

// NewWorkflow creates an empty workflow for a document type with its
// initial state.
func NewWorkflow(docType DocumentType, initial State) *Workflow {
	return &Workflow{
		docType:   docType,
		initial:   initial,
		table:     make(map[stateAction]Transition),
		editable:  make(map[State]bool),
		deletable: make(map[State]bool),
	}
}

// DocType returns the document type this workflow governs.
func (w *Workflow) DocType() DocumentType { return w.docType }

// Initial returns the state new documents start in.
func (w *Workflow) Initial() State { return w.initial }

// Add registers a transition. Duplicate (state, action) pairs are a
// programmer error and panic.
func (w *Workflow) Add(t Transition) *Workflow {
	k := stateAction{t.From, t.Action}
	if _, exists := w.table[k]; exists {
		panic(fmt.Sprintf("workflow %s: duplicate transition (%s, %s)",
			w.docType.TypeID(), t.From, t.Action))
	}
	w.table[k] = t
	return w
}

// MarkEditable declares states in which field edits are permitted.
func (w *Workflow) MarkEditable(states ...State) *Workflow {
	for _, s := range states {
		w.editable[s] = true
	}
	return w
}

// MarkDeletable declares states from which soft-deletion is permitted.
func (w *Workflow) MarkDeletable(states ...State) *Workflow {
	for _, s := range states {
		w.deletable[s] = true
	}
	return w
}

// =============================================================================
// QUERIES - Derived predicates, never stored booleans
// =============================================================================

// IsTerminal reports whether the state has no outgoing transitions.
func (w *Workflow) IsTerminal(state State) bool {
	for k := range w.table {
		if k.state == state {
			return false
		}
	}
	return true
}

// CanEdit reports whether field edits are allowed in the document's
// current state.
func (w *Workflow) CanEdit(doc *Document) bool {
	return w.editable[doc.Status]
}

// CanDelete reports whether soft-deletion is allowed from the document's
// current state.
func (w *Workflow) CanDelete(doc *Document) bool {
	return w.deletable[doc.Status]
}

// EnsureEditable returns a TransitionError when the document's state does
// not permit edits. Callers mutating line items invoke this first.
func (w *Workflow) EnsureEditable(doc *Document) error {
	if w.editable[doc.Status] {
		return nil
	}
	return &TransitionError{
		DocumentType:  w.docType.TypeID(),
		From:          doc.Status,
		Action:        "edit",
		ViolatedGuard: "NotEditable",
	}
}

// AllowedActions returns the actions whose guards currently pass, in no
// particular order. This is what UI-facing can_X flags are computed from.
func (w *Workflow) AllowedActions(doc *Document, tc TransitionContext) []Action {
	var actions []Action
	for k := range w.table {
		if k.state != doc.Status {
			continue
		}
		if w.Check(doc, k.action, tc) == nil {
			actions = append(actions, k.action)
		}
	}
	return actions
}

// =============================================================================
// CHECK AND APPLY
// =============================================================================

// Check evaluates the transition for (doc.Status, action). A nil return
// means Apply would succeed on the same snapshot; otherwise the returned
// *TransitionError names the violated guard.
func (w *Workflow) Check(doc *Document, action Action, tc TransitionContext) error {
	t, ok := w.table[stateAction{doc.Status, action}]
	if !ok {
		// Fail closed: unknown pairs are refused, not ignored.
		return &TransitionError{
			DocumentType:  w.docType.TypeID(),
			From:          doc.Status,
			Action:        action,
			ViolatedGuard: "UndefinedTransition",
		}
	}

	for _, g := range t.Guards {
		if err := g.Check(doc, tc); err != nil {
			return &TransitionError{
				DocumentType:  w.docType.TypeID(),
				From:          doc.Status,
				Action:        action,
				ViolatedGuard: g.Name,
				Detail:        err.Error(),
			}
		}
	}
	return nil
}

// CanTransition reports whether the action is currently allowed.
// Equivalent to Check(...) == nil.
func (w *Workflow) CanTransition(doc *Document, action Action, tc TransitionContext) bool {
	return w.Check(doc, action, tc) == nil
}

// TransitionResult is the output of a successful Apply: the document
// copy in its next state plus the side effects the caller must execute.
type TransitionResult struct {
	Document    *Document
	NextState   State
	SideEffects []SideEffect
}

// Apply re-checks the guards and, only if they pass, returns a copy of
// the document in the next state together with the declared side effects.
// The input document is never mutated; persistence happens in the caller.
func (w *Workflow) Apply(doc *Document, action Action, tc TransitionContext) (*TransitionResult, error) {
	if err := w.Check(doc, action, tc); err != nil {
		return nil, err
	}

	t := w.table[stateAction{doc.Status, action}]

	next := doc.Clone()
	next.Status = t.To
	if !tc.Now.IsZero() {
		next.UpdatedAt = tc.Now
	}

	var effects []SideEffect
	if t.Effects != nil {
		effects = t.Effects(doc, tc)
	}

	return &TransitionResult{
		Document:    next,
		NextState:   t.To,
		SideEffects: effects,
	}, nil
}
