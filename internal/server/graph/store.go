// Package graph provides the storage backends for the document relation
// graph. Both backends implement the same Store interface: Neo4j for
// shared deployments and SQLite for embedded and single-node use.
package graph

import (
	"context"

	"github.com/systemshift/docgraph/internal/relations"
)

// Query limits and defaults.
const (
	// MaxPathResults caps the number of paths a path query returns.
	MaxPathResults = 10

	// DefaultTraversalDepth is the hop bound applied when a traversal
	// request does not name one.
	DefaultTraversalDepth = 3

	// DefaultPathDepth is the hop bound applied when a path query does
	// not name one.
	DefaultPathDepth = 5
)

// TraversalQuery describes a bounded multi-hop exploration from a start
// document. Types and Exclude may both be supplied; exclusion applies on
// top of inclusion.
type TraversalQuery struct {
	StartID   string
	Direction relations.Direction
	Types     []relations.RelationType
	Exclude   []relations.RelationType
	MaxDepth  int
}

// TraversalHit is one document reached during a traversal. A document
// reachable at several depths via different paths appears once per path;
// hits are ordered by increasing depth.
type TraversalHit struct {
	DocumentID    string                   `json:"document_id"`
	Title         string                   `json:"title"`
	Depth         int                      `json:"depth"`
	RelationTypes []relations.RelationType `json:"relation_types"`
	Properties    map[string]any           `json:"properties,omitempty"`
}

// PathQuery describes a path search between two documents following edge
// direction.
type PathQuery struct {
	StartID  string
	EndID    string
	Types    []relations.RelationType
	MaxDepth int
}

// PathNode is a document on a path.
type PathNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PathEdge is a relation on a path.
type PathEdge struct {
	Source     string                 `json:"source_id"`
	Target     string                 `json:"target_id"`
	Type       relations.RelationType `json:"relation_type"`
	Properties map[string]any         `json:"properties,omitempty"`
}

// Path is a sequence of documents connected by relations.
type Path struct {
	Nodes  []PathNode `json:"nodes"`
	Edges  []PathEdge `json:"edges"`
	Length int        `json:"length"`
}

// Store is the storage capability the relation engine and the API layer
// consume. Both backends implement it.
type Store interface {
	// Lifecycle
	Close(ctx context.Context) error

	// Document operations
	CreateDocument(ctx context.Context, doc *relations.Document) error
	GetDocument(ctx context.Context, id string) (*relations.Document, error)
	DocumentExists(ctx context.Context, id string) (bool, error)
	DeleteDocument(ctx context.Context, id string) error

	// Relation operations
	CreateRelation(ctx context.Context, rel relations.Relation) error
	CommitPlan(ctx context.Context, plan relations.CommitPlan) error
	DeleteRelation(ctx context.Context, source, target string, t relations.RelationType) (bool, error)
	GetOutgoingRelations(ctx context.Context, id string) ([]relations.Relation, error)
	GetRelations(ctx context.Context, id string, typeFilter []relations.RelationType, direction relations.Direction) ([]relations.Relation, error)

	// Graph queries
	Traverse(ctx context.Context, q TraversalQuery) ([]TraversalHit, error)
	FindPaths(ctx context.Context, q PathQuery) ([]Path, error)
	ShortestPath(ctx context.Context, q PathQuery) ([]Path, error)
}

func (q TraversalQuery) depth() int {
	if q.MaxDepth <= 0 {
		return DefaultTraversalDepth
	}
	return q.MaxDepth
}

func (q PathQuery) depth() int {
	if q.MaxDepth <= 0 {
		return DefaultPathDepth
	}
	return q.MaxDepth
}

func typeStrings(types []relations.RelationType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
