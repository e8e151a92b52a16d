package relations

import (
	"context"
	"errors"
	"testing"
)

// fakeGraph serves outgoing edges from an in-memory adjacency map.
type fakeGraph struct {
	outgoing map[string][]string
	readErr  error
}

func (f *fakeGraph) GetOutgoingRelations(ctx context.Context, id string) ([]Relation, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var rels []Relation
	for _, target := range f.outgoing[id] {
		rels = append(rels, Relation{Source: id, Target: target, Type: NextStep})
	}
	return rels, nil
}

func TestWouldCreateCycleDirect(t *testing.T) {
	// b -> a exists; adding a -> b closes the loop.
	g := &fakeGraph{outgoing: map[string][]string{"b": {"a"}}}
	d := NewCycleDetector(g)

	cyclic, err := d.WouldCreateCycle(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cyclic {
		t.Error("expected direct cycle to be detected")
	}
}

func TestWouldCreateCycleChain(t *testing.T) {
	g := &fakeGraph{outgoing: map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}}
	d := NewCycleDetector(g)

	cyclic, err := d.WouldCreateCycle(context.Background(), "c", "a")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cyclic {
		t.Error("expected chain cycle c -> a -> b -> c to be detected")
	}

	// Extending the chain onto a fresh node is fine.
	cyclic, err = d.WouldCreateCycle(context.Background(), "c", "d")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if cyclic {
		t.Error("c -> d does not close a cycle")
	}
}

func TestWouldCreateCycleDiamond(t *testing.T) {
	// Two branches converging on d must not be mistaken for a cycle:
	// backtracking removes nodes from the path set between branches.
	g := &fakeGraph{outgoing: map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
	}}
	d := NewCycleDetector(g)

	cyclic, err := d.WouldCreateCycle(context.Background(), "x", "a")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if cyclic {
		t.Error("diamond is acyclic; detector flagged a cycle")
	}
}

func TestWouldCreateCycleDepthExhausted(t *testing.T) {
	// A chain deeper than the bound is reported as cyclic: the search
	// fails closed when it cannot prove safety.
	g := &fakeGraph{outgoing: map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"d"},
	}}
	d := NewCycleDetectorWithDepth(g, 2)

	cyclic, err := d.WouldCreateCycle(context.Background(), "x", "a")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if !cyclic {
		t.Error("expected depth exhaustion to report a cycle")
	}

	// The same graph within a generous bound is safe.
	d = NewCycleDetectorWithDepth(g, 10)
	cyclic, err = d.WouldCreateCycle(context.Background(), "x", "a")
	if err != nil {
		t.Fatalf("WouldCreateCycle failed: %v", err)
	}
	if cyclic {
		t.Error("chain within depth bound is acyclic")
	}
}

func TestWouldCreateCycleStoreError(t *testing.T) {
	readErr := errors.New("connection reset")
	g := &fakeGraph{readErr: readErr}
	d := NewCycleDetector(g)

	_, err := d.WouldCreateCycle(context.Background(), "a", "b")
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
	if !errors.Is(err, readErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if IsValidationError(err) {
		t.Error("store error must not read as a validation verdict")
	}
}
