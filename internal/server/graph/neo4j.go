package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/systemshift/docgraph/internal/relations"
)

// Neo4jStore implements Store using Neo4j. Relations are stored as RELATES
// relationships carrying their kind in a type property, so every query
// stays fully parameterized; the only per-call variation in query text is
// the direction pattern and the hop bound, both drawn from closed sets.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// Config holds Neo4j connection configuration
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4j creates a new Neo4j store
func NewNeo4j(ctx context.Context, cfg Config) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}

	return &Neo4jStore{driver: driver, database: database}, nil
}

// Close closes the Neo4j connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// CreateDocument creates a document node.
func (s *Neo4jStore) CreateDocument(ctx context.Context, doc *relations.Document) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Neo4j doesn't support nested maps as property values
		metaJSON, err := json.Marshal(doc.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshaling properties: %w", err)
		}

		query := `
			CREATE (d:Document {
				id: $id,
				title: $title,
				properties: $properties,
				created: $created,
				modified: $modified
			})
		`

		params := map[string]any{
			"id":         doc.ID,
			"title":      doc.Title,
			"properties": string(metaJSON),
			"created":    doc.Created.Format("2006-01-02T15:04:05Z"),
			"modified":   doc.Modified.Format("2006-01-02T15:04:05Z"),
		}

		_, err = tx.Run(ctx, query, params)
		return nil, err
	})

	return err
}

// GetDocument retrieves a document by ID.
func (s *Neo4jStore) GetDocument(ctx context.Context, id string) (*relations.Document, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (d:Document {id: $id})
			RETURN d
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			return nil, &relations.NotFoundError{ID: id}
		}

		record := result.Record()
		nodeValue, _ := record.Get("d")
		nodeData := nodeValue.(neo4j.Node)

		doc := &relations.Document{
			ID:    nodeData.Props["id"].(string),
			Title: nodeData.Props["title"].(string),
		}
		if propsStr, ok := nodeData.Props["properties"].(string); ok && propsStr != "" && propsStr != "null" {
			if err := json.Unmarshal([]byte(propsStr), &doc.Meta); err != nil {
				return nil, fmt.Errorf("unmarshaling properties: %w", err)
			}
		}

		return doc, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*relations.Document), nil
}

// DocumentExists reports whether a document node with the given ID exists.
func (s *Neo4jStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (d:Document {id: $id})
			RETURN count(d) AS c
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}

		count, _ := record.Get("c")
		return count.(int64) > 0, nil
	})

	if err != nil {
		return false, err
	}

	return result.(bool), nil
}

// DeleteDocument removes a document node and all relations touching it.
func (s *Neo4jStore) DeleteDocument(ctx context.Context, id string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (d:Document {id: $id})
			DETACH DELETE d
			RETURN count(*) AS deleted
		`

		result, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}

		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}

		deleted, _ := record.Get("deleted")
		return deleted.(int64), nil
	})

	if err != nil {
		return err
	}
	if result.(int64) == 0 {
		return &relations.NotFoundError{ID: id}
	}

	return nil
}

const createRelationCypher = `
	MATCH (source:Document {id: $source_id})
	MATCH (target:Document {id: $target_id})
	CREATE (source)-[r:RELATES {
		type: $type,
		properties: $properties,
		created: $created
	}]->(target)
`

func relationParams(rel relations.Relation) (map[string]any, error) {
	propsJSON, err := json.Marshal(rel.Properties)
	if err != nil {
		return nil, fmt.Errorf("marshaling properties: %w", err)
	}
	return map[string]any{
		"source_id":  rel.Source,
		"target_id":  rel.Target,
		"type":       string(rel.Type),
		"properties": string(propsJSON),
		"created":    rel.Created.Format("2006-01-02T15:04:05Z"),
	}, nil
}

// CreateRelation creates a single relation between two documents.
func (s *Neo4jStore) CreateRelation(ctx context.Context, rel relations.Relation) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params, err := relationParams(rel)
		if err != nil {
			return nil, err
		}
		_, err = tx.Run(ctx, createRelationCypher, params)
		return nil, err
	})

	return err
}

// CommitPlan writes a validated commit plan inside one transaction, so a
// reader never observes the primary relation without its symmetric or
// inverse counterpart.
func (s *Neo4jStore) CommitPlan(ctx context.Context, plan relations.CommitPlan) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, rel := range plan.Relations() {
			params, err := relationParams(rel)
			if err != nil {
				return nil, err
			}
			if _, err := tx.Run(ctx, createRelationCypher, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})

	return err
}

// DeleteRelation removes the relation identified by (source, target, type).
func (s *Neo4jStore) DeleteRelation(ctx context.Context, source, target string, t relations.RelationType) (bool, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (source:Document {id: $source_id})-[r:RELATES {type: $type}]->(target:Document {id: $target_id})
			DELETE r
			RETURN count(*) AS deleted
		`

		result, err := tx.Run(ctx, query, map[string]any{
			"source_id": source,
			"target_id": target,
			"type":      string(t),
		})
		if err != nil {
			return nil, err
		}

		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}

		deleted, _ := record.Get("deleted")
		return deleted.(int64) > 0, nil
	})

	if err != nil {
		return false, err
	}

	return result.(bool), nil
}

// GetOutgoingRelations returns all relations whose source is the given
// document.
func (s *Neo4jStore) GetOutgoingRelations(ctx context.Context, id string) ([]relations.Relation, error) {
	return s.GetRelations(ctx, id, nil, relations.DirectionOutgoing)
}

// relationPattern maps a direction to its match pattern. The three shapes
// are the only query-text variation; everything else is a parameter.
func relationPattern(direction relations.Direction) string {
	switch direction {
	case relations.DirectionOutgoing:
		return `MATCH (d:Document {id: $id})-[r:RELATES]->(o:Document)`
	case relations.DirectionIncoming:
		return `MATCH (d:Document {id: $id})<-[r:RELATES]-(o:Document)`
	default:
		return `MATCH (d:Document {id: $id})-[r:RELATES]-(o:Document)`
	}
}

// GetRelations returns the relations touching a document, filtered by
// direction and optionally by type.
func (s *Neo4jStore) GetRelations(ctx context.Context, id string, typeFilter []relations.RelationType, direction relations.Direction) ([]relations.Relation, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := relationPattern(direction)
		params := map[string]any{"id": id}

		if len(typeFilter) > 0 {
			query += `
			WHERE r.type IN $types`
			params["types"] = typeStrings(typeFilter)
		}

		query += `
			RETURN startNode(r).id AS source, endNode(r).id AS target,
			       r.type AS type, r.properties AS properties
		`

		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var rels []relations.Relation
		for result.Next(ctx) {
			record := result.Record()
			rel, err := relationFromRecord(record)
			if err != nil {
				return nil, err
			}
			rels = append(rels, rel)
		}

		return rels, result.Err()
	})

	if err != nil {
		return nil, err
	}

	return result.([]relations.Relation), nil
}

func relationFromRecord(record *neo4j.Record) (relations.Relation, error) {
	source, _ := record.Get("source")
	target, _ := record.Get("target")
	typ, _ := record.Get("type")
	props, _ := record.Get("properties")

	rel := relations.Relation{
		Source: source.(string),
		Target: target.(string),
		Type:   relations.RelationType(typ.(string)),
	}

	properties, err := decodeProps(props)
	if err != nil {
		return relations.Relation{}, err
	}
	rel.Properties = properties

	return rel, nil
}

func decodeProps(v any) (map[string]any, error) {
	s, ok := v.(string)
	if !ok || s == "" || s == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshaling properties: %w", err)
	}
	return out, nil
}

// traversalPattern maps a direction and hop bound to a variable-length
// pattern. The hop bound must be a literal in Cypher; it is an integer
// clamped by the caller, never raw input.
func traversalPattern(direction relations.Direction, depth int) string {
	switch direction {
	case relations.DirectionOutgoing:
		return fmt.Sprintf(`-[:RELATES*1..%d]->`, depth)
	case relations.DirectionIncoming:
		return fmt.Sprintf(`<-[:RELATES*1..%d]-`, depth)
	default:
		return fmt.Sprintf(`-[:RELATES*1..%d]-`, depth)
	}
}

// Traverse explores the graph from a start document using a
// variable-length pattern match. Each matched path yields a row, so a
// document reachable at several depths via different paths is reported at
// each.
func (s *Neo4jStore) Traverse(ctx context.Context, q TraversalQuery) ([]TraversalHit, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH path = (start:Document {id: $id})` + traversalPattern(q.Direction, q.depth()) + `(related:Document)`
		params := map[string]any{"id": q.StartID}

		var conditions []string
		if len(q.Types) > 0 {
			conditions = append(conditions, `ALL(rel IN relationships(path) WHERE rel.type IN $types)`)
			params["types"] = typeStrings(q.Types)
		}
		if len(q.Exclude) > 0 {
			conditions = append(conditions, `NONE(rel IN relationships(path) WHERE rel.type IN $exclude)`)
			params["exclude"] = typeStrings(q.Exclude)
		}
		for i, cond := range conditions {
			if i == 0 {
				query += `
			WHERE ` + cond
			} else {
				query += `
			  AND ` + cond
			}
		}

		query += `
			RETURN related.id AS id, related.title AS title,
			       [rel IN relationships(path) | rel.type] AS types,
			       relationships(path)[-1].properties AS properties,
			       length(path) AS depth
			ORDER BY depth
		`

		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var hits []TraversalHit
		for result.Next(ctx) {
			record := result.Record()

			id, _ := record.Get("id")
			title, _ := record.Get("title")
			types, _ := record.Get("types")
			props, _ := record.Get("properties")
			depth, _ := record.Get("depth")

			properties, err := decodeProps(props)
			if err != nil {
				return nil, err
			}

			hits = append(hits, TraversalHit{
				DocumentID:    id.(string),
				Title:         title.(string),
				Depth:         int(depth.(int64)),
				RelationTypes: typeList(types),
				Properties:    properties,
			})
		}

		return hits, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("traversing from %s: %w", q.StartID, err)
	}

	return result.([]TraversalHit), nil
}

// FindPaths enumerates directed paths from start to end, ordered by
// increasing length and capped at MaxPathResults.
func (s *Neo4jStore) FindPaths(ctx context.Context, q PathQuery) ([]Path, error) {
	pattern := fmt.Sprintf(`MATCH path = (start:Document {id: $start})-[:RELATES*1..%d]->(end:Document {id: $end})`, q.depth())
	return s.pathQuery(ctx, q, pattern)
}

// ShortestPath returns only the minimal-length path(s) between two
// documents, using the store's native shortest-path search.
func (s *Neo4jStore) ShortestPath(ctx context.Context, q PathQuery) ([]Path, error) {
	pattern := fmt.Sprintf(`MATCH path = allShortestPaths((start:Document {id: $start})-[:RELATES*..%d]->(end:Document {id: $end}))`, q.depth())
	return s.pathQuery(ctx, q, pattern)
}

func (s *Neo4jStore) pathQuery(ctx context.Context, q PathQuery, pattern string) ([]Path, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			` + pattern
		params := map[string]any{
			"start": q.StartID,
			"end":   q.EndID,
			"limit": MaxPathResults,
		}

		if len(q.Types) > 0 {
			query += `
			WHERE ALL(rel IN relationships(path) WHERE rel.type IN $types)`
			params["types"] = typeStrings(q.Types)
		}

		query += `
			RETURN [n IN nodes(path) | n.id] AS ids,
			       [n IN nodes(path) | n.title] AS titles,
			       [rel IN relationships(path) | rel.type] AS types,
			       [rel IN relationships(path) | rel.properties] AS properties,
			       length(path) AS len
			ORDER BY len
			LIMIT $limit
		`

		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var paths []Path
		for result.Next(ctx) {
			record := result.Record()
			p, err := pathFromRecord(record)
			if err != nil {
				return nil, err
			}
			paths = append(paths, p)
		}

		return paths, result.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("finding paths %s -> %s: %w", q.StartID, q.EndID, err)
	}

	return result.([]Path), nil
}

func pathFromRecord(record *neo4j.Record) (Path, error) {
	idsValue, _ := record.Get("ids")
	titlesValue, _ := record.Get("titles")
	typesValue, _ := record.Get("types")
	propsValue, _ := record.Get("properties")
	lenValue, _ := record.Get("len")

	ids := idsValue.([]any)
	titles := titlesValue.([]any)
	types := typesValue.([]any)
	props := propsValue.([]any)

	p := Path{Length: int(lenValue.(int64))}

	for i := range ids {
		p.Nodes = append(p.Nodes, PathNode{
			ID:    ids[i].(string),
			Title: titles[i].(string),
		})
	}

	for i := range types {
		properties, err := decodeProps(props[i])
		if err != nil {
			return Path{}, err
		}
		p.Edges = append(p.Edges, PathEdge{
			Source:     ids[i].(string),
			Target:     ids[i+1].(string),
			Type:       relations.RelationType(types[i].(string)),
			Properties: properties,
		})
	}

	return p, nil
}

func typeList(v any) []relations.RelationType {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]relations.RelationType, len(items))
	for i, item := range items {
		out[i] = relations.RelationType(item.(string))
	}
	return out
}
