package relations

// Policy limits. The global ceiling and the type-specific ceiling are both
// applied; the stricter one wins.
const (
	// MaxRelationsPerDocument caps outgoing relations per document.
	MaxRelationsPerDocument = 50

	// MaxCycleDepth bounds the cycle detector's search. Exhausting it is
	// treated as unsafe, not safe.
	MaxCycleDepth = 10
)

var maxRelationsByType = map[RelationType]int{
	NextStep:     1,
	Prerequisite: 5,
	ParentOf:     100,
	ChildOf:      1,
}

// incompatibleWith lists, per proposed type, the existing relation types
// that forbid it on the same document.
var incompatibleWith = map[RelationType][]RelationType{
	ParentOf: {ChildOf},
	NextStep: {Prerequisite},
}

// TypeLimit returns the effective ceiling for relations of type t from one
// document: the stricter of the global and the type-specific limit.
func TypeLimit(t RelationType) int {
	if limit, ok := maxRelationsByType[t]; ok && limit < MaxRelationsPerDocument {
		return limit
	}
	return MaxRelationsPerDocument
}

// CheckCount reports whether one more relation of type t may be created
// given the current count of that type on the source document.
func CheckCount(currentCount int, t RelationType) bool {
	return currentCount < TypeLimit(t)
}

// Incompatibility returns the first existing relation type that conflicts
// with the proposed type, if any.
func Incompatibility(proposed RelationType, existing []RelationType) (RelationType, bool) {
	conflicts := incompatibleWith[proposed]
	if len(conflicts) == 0 {
		return "", false
	}
	for _, have := range existing {
		for _, c := range conflicts {
			if have == c {
				return have, true
			}
		}
	}
	return "", false
}

// CheckCompatibility reports whether a relation of the proposed type may
// coexist with the document's existing relation types.
func CheckCompatibility(proposed RelationType, existing []RelationType) bool {
	_, conflict := Incompatibility(proposed, existing)
	return !conflict
}
