package relations

import (
	"context"
	"errors"
	"testing"
)

// fakeStore is an in-memory ValidationStore.
type fakeStore struct {
	docs     map[string]bool
	outgoing map[string][]Relation
	readErr  error
}

func newFakeStore(ids ...string) *fakeStore {
	docs := make(map[string]bool, len(ids))
	for _, id := range ids {
		docs[id] = true
	}
	return &fakeStore{docs: docs, outgoing: make(map[string][]Relation)}
}

func (f *fakeStore) addRelation(source, target string, t RelationType) {
	f.outgoing[source] = append(f.outgoing[source], Relation{Source: source, Target: target, Type: t})
}

func (f *fakeStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	return f.docs[id], nil
}

func (f *fakeStore) GetOutgoingRelations(ctx context.Context, id string) ([]Relation, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.outgoing[id], nil
}

func TestValidateDocumentNotFound(t *testing.T) {
	store := newFakeStore("a")
	v := NewValidator(store)

	err := v.Validate(context.Background(), "a", "missing", References, map[string]any{"section": "1"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != "missing" {
		t.Errorf("expected missing target to be reported, got %s", nf.ID)
	}

	err = v.Validate(context.Background(), "ghost", "a", References, map[string]any{"section": "1"})
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != "ghost" {
		t.Errorf("expected missing source to be reported, got %s", nf.ID)
	}
}

func TestValidateRequiredProperty(t *testing.T) {
	store := newFakeStore("a", "b")
	v := NewValidator(store)

	err := v.Validate(context.Background(), "a", "b", NextStep, nil)
	var missing *MissingPropertyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPropertyError, got %v", err)
	}
	if missing.Property != "order" {
		t.Errorf("expected missing property order, got %s", missing.Property)
	}

	err = v.Validate(context.Background(), "a", "b", NextStep, map[string]any{"order": 1})
	if err != nil {
		t.Errorf("expected proposal with required property to pass, got %v", err)
	}
}

func TestValidateCardinality(t *testing.T) {
	store := newFakeStore("a", "t1", "t2", "t3", "t4", "t5", "t6")
	v := NewValidator(store)
	props := map[string]any{"importance": "high"}

	for _, target := range []string{"t1", "t2", "t3", "t4"} {
		store.addRelation("a", target, Prerequisite)
	}

	// Four exist; the fifth is allowed.
	if err := v.Validate(context.Background(), "a", "t5", Prerequisite, props); err != nil {
		t.Fatalf("fifth prerequisite should be allowed: %v", err)
	}

	store.addRelation("a", "t5", Prerequisite)

	err := v.Validate(context.Background(), "a", "t6", Prerequisite, props)
	var card *CardinalityError
	if !errors.As(err, &card) {
		t.Fatalf("expected CardinalityError, got %v", err)
	}
	if card.Limit != 5 {
		t.Errorf("expected limit 5 in error, got %d", card.Limit)
	}
}

func TestValidateCardinalityCountsOnlySameType(t *testing.T) {
	store := newFakeStore("a", "b", "c")
	store.addRelation("a", "b", References)
	v := NewValidator(store)

	// One NEXT_STEP allowed even with other relation types present.
	if err := v.Validate(context.Background(), "a", "c", NextStep, map[string]any{"order": 1}); err != nil {
		t.Errorf("unrelated relation types must not count toward the cap: %v", err)
	}
}

func TestValidateIncompatible(t *testing.T) {
	store := newFakeStore("a", "b", "c")
	store.addRelation("b", "a", ChildOf)
	v := NewValidator(store)

	err := v.Validate(context.Background(), "b", "c", ParentOf, nil)
	var inc *IncompatibleError
	if !errors.As(err, &inc) {
		t.Fatalf("expected IncompatibleError, got %v", err)
	}
	if inc.Conflict != ChildOf {
		t.Errorf("expected conflict with CHILD_OF, got %s", inc.Conflict)
	}
}

func TestValidateCycle(t *testing.T) {
	store := newFakeStore("a", "b", "c", "d")
	store.addRelation("a", "b", NextStep)
	store.addRelation("b", "c", NextStep)
	v := NewValidator(store)
	props := map[string]any{"order": 1}

	err := v.Validate(context.Background(), "c", "a", NextStep, props)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	if err := v.Validate(context.Background(), "c", "d", NextStep, props); err != nil {
		t.Errorf("extending the chain onto a fresh node should pass: %v", err)
	}
}

func TestValidateCheckOrder(t *testing.T) {
	// A proposal that both lacks a required property and would close a
	// cycle fails on the property: required properties are checked before
	// cycle safety.
	store := newFakeStore("a", "b")
	store.addRelation("b", "a", References)
	v := NewValidator(store)

	err := v.Validate(context.Background(), "a", "b", NextStep, nil)
	var missing *MissingPropertyError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingPropertyError before cycle check, got %v", err)
	}
}

func TestValidateStoreError(t *testing.T) {
	store := newFakeStore("a", "b")
	store.readErr = errors.New("disk I/O error")
	v := NewValidator(store)

	err := v.Validate(context.Background(), "a", "b", RelatedTo, map[string]any{"type": "topic"})
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if IsValidationError(err) {
		t.Error("store error must not read as a validation verdict")
	}
	if !errors.Is(err, store.readErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestValidateAndPrepareSymmetric(t *testing.T) {
	store := newFakeStore("a", "b")
	v := NewValidator(store)
	props := map[string]any{"type": "topic"}

	plan, err := v.ValidateAndPrepare(context.Background(), "a", "b", RelatedTo, props)
	if err != nil {
		t.Fatalf("ValidateAndPrepare failed: %v", err)
	}
	if plan.Derived == nil {
		t.Fatal("symmetric type must produce a derived relation")
	}
	if plan.Derived.Source != "b" || plan.Derived.Target != "a" {
		t.Errorf("derived relation should be reversed, got %s -> %s", plan.Derived.Source, plan.Derived.Target)
	}
	if plan.Derived.Type != RelatedTo {
		t.Errorf("symmetric counterpart keeps the type, got %s", plan.Derived.Type)
	}
	if got := len(plan.Relations()); got != 2 {
		t.Errorf("expected plan of 2 relations, got %d", got)
	}
}

func TestValidateAndPrepareInverse(t *testing.T) {
	store := newFakeStore("a", "b")
	v := NewValidator(store)

	plan, err := v.ValidateAndPrepare(context.Background(), "a", "b", References, map[string]any{"section": "2.1"})
	if err != nil {
		t.Fatalf("ValidateAndPrepare failed: %v", err)
	}
	if plan.Derived == nil {
		t.Fatal("inverse-bearing type must produce a derived relation")
	}
	if plan.Derived.Type != CitedBy {
		t.Errorf("expected derived CITED_BY, got %s", plan.Derived.Type)
	}
	if plan.Derived.Source != "b" || plan.Derived.Target != "a" {
		t.Errorf("derived relation should be reversed, got %s -> %s", plan.Derived.Source, plan.Derived.Target)
	}
}

func TestValidateAndPreparePlain(t *testing.T) {
	store := newFakeStore("a", "b")
	v := NewValidator(store)

	plan, err := v.ValidateAndPrepare(context.Background(), "a", "b", Explains, map[string]any{"aspect": "architecture"})
	if err != nil {
		t.Fatalf("ValidateAndPrepare failed: %v", err)
	}
	if plan.Derived != nil {
		t.Errorf("plain type must not produce a derived relation, got %v", plan.Derived)
	}
	if got := len(plan.Relations()); got != 1 {
		t.Errorf("expected plan of 1 relation, got %d", got)
	}
	if plan.Primary.Created.IsZero() {
		t.Error("primary relation should carry a creation time")
	}
}
