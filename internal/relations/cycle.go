package relations

import (
	"context"
	"fmt"
)

// RelationReader is the read surface the cycle detector needs from the
// graph store.
type RelationReader interface {
	GetOutgoingRelations(ctx context.Context, id string) ([]Relation, error)
}

// CycleDetector decides whether a proposed relation would close a directed
// cycle. It walks outgoing edges of every type, not only the proposed one:
// any outgoing chain counts toward cycle risk.
type CycleDetector struct {
	store      RelationReader
	depthLimit int
}

// NewCycleDetector returns a detector bounded by MaxCycleDepth.
func NewCycleDetector(store RelationReader) *CycleDetector {
	return &CycleDetector{store: store, depthLimit: MaxCycleDepth}
}

// NewCycleDetectorWithDepth returns a detector with a caller-chosen depth
// bound.
func NewCycleDetectorWithDepth(store RelationReader, depthLimit int) *CycleDetector {
	return &CycleDetector{store: store, depthLimit: depthLimit}
}

// WouldCreateCycle reports whether adding an edge source -> target would
// make source reachable from target within the depth bound. Exhausting the
// bound before the search converges reports a cycle: the search fails
// closed. A store read failure aborts the check; the error is a store
// error, never a policy verdict.
//
// Each call owns an independent visited set, so concurrent validations do
// not share state.
func (d *CycleDetector) WouldCreateCycle(ctx context.Context, sourceID, targetID string) (bool, error) {
	visited := make(map[string]struct{})
	return d.walk(ctx, sourceID, targetID, visited, 0)
}

// walk performs the depth-first search. from is the node whose proposed or
// followed edge points at current. The visited set holds the nodes on the
// current search path; entries are removed on backtrack so a node reached
// via two independent branches is not falsely flagged.
func (d *CycleDetector) walk(ctx context.Context, from, current string, visited map[string]struct{}, depth int) (bool, error) {
	if depth >= d.depthLimit {
		return true, nil
	}
	if _, seen := visited[current]; seen {
		return true, nil
	}

	visited[from] = struct{}{}

	outgoing, err := d.store.GetOutgoingRelations(ctx, current)
	if err != nil {
		return false, fmt.Errorf("reading outgoing relations of %s: %w", current, err)
	}

	for _, rel := range outgoing {
		cyclic, err := d.walk(ctx, current, rel.Target, visited, depth+1)
		if err != nil {
			return false, err
		}
		if cyclic {
			return true, nil
		}
	}

	delete(visited, from)
	return false, nil
}
