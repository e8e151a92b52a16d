// Package relations implements the relation-graph integrity engine: the
// static relation-type registry, cardinality and compatibility policy,
// cycle detection, and the validator that decides whether a proposed
// relation between two documents may be created.
package relations

import "time"

// RelationType identifies a kind of directed edge between documents.
type RelationType string

// The closed set of relation types.
const (
	// Sequence relations
	NextStep     RelationType = "NEXT_STEP"
	Prerequisite RelationType = "PREREQUISITE"
	Follows      RelationType = "FOLLOWS"

	// Reference relations
	References RelationType = "REFERENCES"
	CitedBy    RelationType = "CITED_BY"

	// Association relations
	RelatedTo   RelationType = "RELATED_TO"
	SimilarTo   RelationType = "SIMILAR_TO"
	Alternative RelationType = "ALTERNATIVE"

	// Hierarchy relations
	ParentOf  RelationType = "PARENT_OF"
	ChildOf   RelationType = "CHILD_OF"
	BelongsTo RelationType = "BELONGS_TO"

	// Functional relations
	Explains   RelationType = "EXPLAINS"
	Implements RelationType = "IMPLEMENTS"
	Extends    RelationType = "EXTENDS"

	// Problem-solving relations
	Solves   RelationType = "SOLVES"
	Causes   RelationType = "CAUSES"
	Prevents RelationType = "PREVENTS"
)

// Direction selects which edges to follow relative to a document.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// ParseDirection maps a string to a Direction, defaulting to both.
func ParseDirection(s string) Direction {
	switch Direction(s) {
	case DirectionOutgoing:
		return DirectionOutgoing
	case DirectionIncoming:
		return DirectionIncoming
	default:
		return DirectionBoth
	}
}

// Document is the node the engine links. Only identity and title matter
// here; content, embeddings and the rest live in other subsystems.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Meta     map[string]any `json:"meta,omitempty"`
	Created  time.Time      `json:"created"`
	Modified time.Time      `json:"modified"`
}

// Relation is a directed, typed edge between two documents. Identity for
// lookup and deletion is the (Source, Target, Type) triple; two relations
// of the same type between the same ordered pair cannot coexist.
type Relation struct {
	Source     string         `json:"source_id"`
	Target     string         `json:"target_id"`
	Type       RelationType   `json:"relation_type"`
	Properties map[string]any `json:"properties,omitempty"`
	Created    time.Time      `json:"created"`
}
