package generic_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/warp/document-engine/generic"
)

// =============================================================================
// TEST WORKFLOW - A three-state approval flow private to this file
// =============================================================================

type memoType string

func (d memoType) TypeID() string     { return string(d) }
func (d memoType) TypeDomain() string { return "test" }

const typeMemo memoType = "memo"

const (
	stateDraft    generic.State = "draft"
	stateActive   generic.State = "active"
	stateArchived generic.State = "archived"
)

const (
	actionActivate generic.Action = "activate"
	actionArchive  generic.Action = "archive"
)

func memoWorkflow() *generic.Workflow {
	return generic.NewWorkflow(typeMemo, stateDraft).
		Add(generic.Transition{
			From:   stateDraft,
			Action: actionActivate,
			To:     stateActive,
			Guards: []generic.Guard{{
				Name: "HasLineItems",
				Check: func(doc *generic.Document, _ generic.TransitionContext) error {
					if len(doc.Lines) == 0 {
						return fmt.Errorf("document has no line items")
					}
					return nil
				},
			}},
		}).
		Add(generic.Transition{
			From:   stateActive,
			Action: actionArchive,
			To:     stateArchived,
			Effects: func(doc *generic.Document, _ generic.TransitionContext) []generic.SideEffect {
				return []generic.SideEffect{{
					Kind:     generic.EffectUpdateSourceStatus,
					TargetID: doc.ID,
				}}
			},
		}).
		MarkEditable(stateDraft).
		MarkDeletable(stateDraft)
}

func memoDoc(status generic.State) *generic.Document {
	return &generic.Document{
		ID:       "memo-1",
		Type:     typeMemo,
		Status:   status,
		Currency: generic.CurrencyIDR,
		Lines: []generic.LineItem{{
			ID:        "l1",
			Quantity:  dec("1"),
			UnitPrice: idr("1000"),
			Discount:  generic.NoDiscount(),
		}},
		DocumentDiscount: generic.NoDiscount(),
	}
}

// =============================================================================
// CHECK - Fail-closed lookup and guard evaluation
// =============================================================================

func TestWorkflow_Check_UndefinedTransitionFailsClosed(t *testing.T) {
	// GIVEN: An archived document and an action with no edge from that state
	// WHEN: Checking the transition
	// THEN: The refusal names UndefinedTransition, never a silent no-op

	wf := memoWorkflow()
	err := wf.Check(memoDoc(stateArchived), actionActivate, generic.TransitionContext{})

	if !errors.Is(err, generic.ErrTransitionNotAllowed) {
		t.Fatalf("expected ErrTransitionNotAllowed, got %v", err)
	}
	var te *generic.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.ViolatedGuard != "UndefinedTransition" {
		t.Errorf("violated guard = %q, want UndefinedTransition", te.ViolatedGuard)
	}
	if te.From != stateArchived || te.Action != actionActivate {
		t.Errorf("error should carry the attempted edge, got (%s, %s)", te.From, te.Action)
	}
}

func TestWorkflow_Check_GuardFailureNamesTheGuard(t *testing.T) {
	wf := memoWorkflow()
	doc := memoDoc(stateDraft)
	doc.Lines = nil

	err := wf.Check(doc, actionActivate, generic.TransitionContext{})

	var te *generic.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %v", err)
	}
	if te.ViolatedGuard != "HasLineItems" {
		t.Errorf("violated guard = %q, want HasLineItems", te.ViolatedGuard)
	}
	if te.Detail == "" {
		t.Error("guard failures should carry the guard's reason")
	}
}

func TestWorkflow_Check_PassesWhenGuardsHold(t *testing.T) {
	wf := memoWorkflow()
	if err := wf.Check(memoDoc(stateDraft), actionActivate, generic.TransitionContext{}); err != nil {
		t.Fatalf("expected transition to be allowed: %v", err)
	}
	if !wf.CanTransition(memoDoc(stateDraft), actionActivate, generic.TransitionContext{}) {
		t.Error("CanTransition should agree with Check")
	}
}

// =============================================================================
// APPLY - Clone semantics and declared effects
// =============================================================================

func TestWorkflow_Apply_ReturnsCloneAndLeavesInputUntouched(t *testing.T) {
	wf := memoWorkflow()
	doc := memoDoc(stateDraft)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	res, err := wf.Apply(doc, actionActivate, generic.TransitionContext{Now: now})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.NextState != stateActive {
		t.Errorf("next state = %s, want %s", res.NextState, stateActive)
	}
	if res.Document.Status != stateActive {
		t.Errorf("result document status = %s, want %s", res.Document.Status, stateActive)
	}
	if !res.Document.UpdatedAt.Equal(now) {
		t.Errorf("result should be stamped with the context clock, got %s", res.Document.UpdatedAt)
	}
	if doc.Status != stateDraft {
		t.Errorf("input document was mutated: status = %s", doc.Status)
	}
}

func TestWorkflow_Apply_EmitsDeclaredEffects(t *testing.T) {
	wf := memoWorkflow()

	res, err := wf.Apply(memoDoc(stateActive), actionArchive, generic.TransitionContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.SideEffects) != 1 {
		t.Fatalf("expected one side effect, got %d", len(res.SideEffects))
	}
	if res.SideEffects[0].Kind != generic.EffectUpdateSourceStatus {
		t.Errorf("effect kind = %s, want %s", res.SideEffects[0].Kind, generic.EffectUpdateSourceStatus)
	}
	if res.SideEffects[0].TargetID != "memo-1" {
		t.Errorf("effect target = %s, want memo-1", res.SideEffects[0].TargetID)
	}
}

func TestWorkflow_Apply_RefusesWhatCheckRefuses(t *testing.T) {
	wf := memoWorkflow()
	doc := memoDoc(stateDraft)
	doc.Lines = nil

	if _, err := wf.Apply(doc, actionActivate, generic.TransitionContext{}); err == nil {
		t.Fatal("Apply must re-check guards, not trust the caller")
	}
}

// =============================================================================
// QUERIES - Terminal, editable, allowed actions
// =============================================================================

func TestWorkflow_IsTerminal(t *testing.T) {
	wf := memoWorkflow()
	if wf.IsTerminal(stateDraft) {
		t.Error("draft has outgoing edges, not terminal")
	}
	if wf.IsTerminal(stateActive) {
		t.Error("active has outgoing edges, not terminal")
	}
	if !wf.IsTerminal(stateArchived) {
		t.Error("archived has no outgoing edges, should be terminal")
	}
}

func TestWorkflow_EnsureEditable(t *testing.T) {
	wf := memoWorkflow()

	if err := wf.EnsureEditable(memoDoc(stateDraft)); err != nil {
		t.Fatalf("draft documents are editable: %v", err)
	}

	err := wf.EnsureEditable(memoDoc(stateActive))
	var te *generic.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransitionError, got %v", err)
	}
	if te.ViolatedGuard != "NotEditable" {
		t.Errorf("violated guard = %q, want NotEditable", te.ViolatedGuard)
	}
}

func TestWorkflow_CanDelete(t *testing.T) {
	wf := memoWorkflow()
	if !wf.CanDelete(memoDoc(stateDraft)) {
		t.Error("draft documents should be deletable")
	}
	if wf.CanDelete(memoDoc(stateActive)) {
		t.Error("active documents should not be deletable")
	}
}

func TestWorkflow_AllowedActions(t *testing.T) {
	wf := memoWorkflow()

	actions := wf.AllowedActions(memoDoc(stateDraft), generic.TransitionContext{})
	if len(actions) != 1 || actions[0] != actionActivate {
		t.Errorf("allowed from draft = %v, want [activate]", actions)
	}

	// A failing guard removes the action from the allowed set.
	empty := memoDoc(stateDraft)
	empty.Lines = nil
	if got := wf.AllowedActions(empty, generic.TransitionContext{}); len(got) != 0 {
		t.Errorf("allowed with no lines = %v, want none", got)
	}

	if got := wf.AllowedActions(memoDoc(stateArchived), generic.TransitionContext{}); len(got) != 0 {
		t.Errorf("allowed from terminal = %v, want none", got)
	}
}
