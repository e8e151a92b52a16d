package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/systemshift/docgraph/internal/relations"
)

// SQLiteStore implements Store using SQLite. Multi-hop queries run as
// recursive CTEs so the database walks the graph, not the caller.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite store at dbPath.
func NewSQLite(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	for _, pragma := range allPragmas() {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	for _, stmt := range allSchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the SQLite connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// CreateDocument inserts a new document.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *relations.Document) error {
	metaJSON, err := json.Marshal(doc.Meta)
	if err != nil {
		return fmt.Errorf("marshaling properties: %w", err)
	}

	query := `
		INSERT INTO documents (id, title, properties, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		string(metaJSON),
		doc.Created.Format(time.RFC3339),
		doc.Modified.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	return nil
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*relations.Document, error) {
	query := `
		SELECT id, title, properties, created_at, modified_at
		FROM documents WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)

	var doc relations.Document
	var propsJSON sql.NullString
	var created, modified string

	err := row.Scan(&doc.ID, &doc.Title, &propsJSON, &created, &modified)
	if err == sql.ErrNoRows {
		return nil, &relations.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if propsJSON.Valid && propsJSON.String != "" && propsJSON.String != "null" {
		if err := json.Unmarshal([]byte(propsJSON.String), &doc.Meta); err != nil {
			return nil, fmt.Errorf("unmarshaling properties: %w", err)
		}
	}
	doc.Created, _ = time.Parse(time.RFC3339, created)
	doc.Modified, _ = time.Parse(time.RFC3339, modified)

	return &doc, nil
}

// DocumentExists reports whether a document with the given ID exists.
func (s *SQLiteStore) DocumentExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return true, nil
}

// DeleteDocument removes a document and, through the schema's cascade,
// every relation touching it.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &relations.NotFoundError{ID: id}
	}

	return nil
}

// CreateRelation inserts a single relation.
func (s *SQLiteStore) CreateRelation(ctx context.Context, rel relations.Relation) error {
	return insertRelation(ctx, s.db, rel)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRelation(ctx context.Context, db execer, rel relations.Relation) error {
	propsJSON, err := json.Marshal(rel.Properties)
	if err != nil {
		return fmt.Errorf("marshaling properties: %w", err)
	}

	query := `
		INSERT INTO relations (source_id, target_id, type, properties, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		rel.Source,
		rel.Target,
		string(rel.Type),
		string(propsJSON),
		rel.Created.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting relation %s -[%s]-> %s: %w", rel.Source, rel.Type, rel.Target, err)
	}

	return nil
}

// CommitPlan writes a validated commit plan in one transaction. Either
// every relation in the plan becomes visible or none does.
func (s *SQLiteStore) CommitPlan(ctx context.Context, plan relations.CommitPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rel := range plan.Relations() {
		if err := insertRelation(ctx, tx, rel); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing relations: %w", err)
	}

	return nil
}

// DeleteRelation removes the relation identified by (source, target, type).
// The bool result reports whether a relation was found and removed;
// deleting an absent relation is not an error.
func (s *SQLiteStore) DeleteRelation(ctx context.Context, source, target string, t relations.RelationType) (bool, error) {
	query := `DELETE FROM relations WHERE source_id = ? AND target_id = ? AND type = ?`

	result, err := s.db.ExecContext(ctx, query, source, target, string(t))
	if err != nil {
		return false, fmt.Errorf("deleting relation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// GetOutgoingRelations returns all relations whose source is the given
// document.
func (s *SQLiteStore) GetOutgoingRelations(ctx context.Context, id string) ([]relations.Relation, error) {
	return s.GetRelations(ctx, id, nil, relations.DirectionOutgoing)
}

// GetRelations returns the relations touching a document, filtered by
// direction and optionally by type.
func (s *SQLiteStore) GetRelations(ctx context.Context, id string, typeFilter []relations.RelationType, direction relations.Direction) ([]relations.Relation, error) {
	var where string
	args := []any{}

	switch direction {
	case relations.DirectionOutgoing:
		where = `source_id = ?`
		args = append(args, id)
	case relations.DirectionIncoming:
		where = `target_id = ?`
		args = append(args, id)
	default:
		where = `(source_id = ? OR target_id = ?)`
		args = append(args, id, id)
	}

	if len(typeFilter) > 0 {
		placeholders := make([]string, len(typeFilter))
		for i, t := range typeFilter {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		where += ` AND type IN (` + strings.Join(placeholders, ",") + `)`
	}

	query := `
		SELECT source_id, target_id, type, properties, created_at
		FROM relations WHERE ` + where + `
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	return scanRelations(rows)
}

func scanRelations(rows *sql.Rows) ([]relations.Relation, error) {
	var out []relations.Relation
	for rows.Next() {
		var rel relations.Relation
		var typ string
		var propsJSON sql.NullString
		var created string

		if err := rows.Scan(&rel.Source, &rel.Target, &typ, &propsJSON, &created); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}

		rel.Type = relations.RelationType(typ)
		if propsJSON.Valid && propsJSON.String != "" && propsJSON.String != "null" {
			if err := json.Unmarshal([]byte(propsJSON.String), &rel.Properties); err != nil {
				return nil, fmt.Errorf("unmarshaling properties: %w", err)
			}
		}
		rel.Created, _ = time.Parse(time.RFC3339, created)

		out = append(out, rel)
	}
	return out, rows.Err()
}

// Traverse explores the graph from a start document up to MaxDepth hops
// using a recursive CTE. Each CTE row is one path, so a document reachable
// at several depths via different paths is reported at each.
func (s *SQLiteStore) Traverse(ctx context.Context, q TraversalQuery) ([]TraversalHit, error) {
	depth := q.depth()

	var filter string
	filterArgs := []any{}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			filterArgs = append(filterArgs, string(t))
		}
		filter += ` AND r.type IN (` + strings.Join(placeholders, ",") + `)`
	}
	if len(q.Exclude) > 0 {
		placeholders := make([]string, len(q.Exclude))
		for i, t := range q.Exclude {
			placeholders[i] = "?"
			filterArgs = append(filterArgs, string(t))
		}
		filter += ` AND r.type NOT IN (` + strings.Join(placeholders, ",") + `)`
	}

	// One recursive member per followed direction; "both" walks edges
	// either way.
	outgoingMember := `
			SELECT r.target_id, w.depth + 1,
			       w.path || r.target_id || '/',
			       CASE WHEN w.types = '' THEN r.type ELSE w.types || ',' || r.type END,
			       r.properties
			FROM walk w
			JOIN relations r ON r.source_id = w.id
			WHERE w.depth < ?` + filter + `
			  AND instr(w.path, '/' || r.target_id || '/') = 0`

	incomingMember := `
			SELECT r.source_id, w.depth + 1,
			       w.path || r.source_id || '/',
			       CASE WHEN w.types = '' THEN r.type ELSE w.types || ',' || r.type END,
			       r.properties
			FROM walk w
			JOIN relations r ON r.target_id = w.id
			WHERE w.depth < ?` + filter + `
			  AND instr(w.path, '/' || r.source_id || '/') = 0`

	args := []any{q.StartID, q.StartID}
	var members []string
	switch q.Direction {
	case relations.DirectionOutgoing:
		members = []string{outgoingMember}
	case relations.DirectionIncoming:
		members = []string{incomingMember}
	default:
		members = []string{outgoingMember, incomingMember}
	}
	for range members {
		args = append(args, depth)
		args = append(args, filterArgs...)
	}

	query := `
		WITH RECURSIVE walk(id, depth, path, types, edge_props) AS (
			SELECT ?, 0, '/' || ? || '/', '', NULL
			UNION ALL` + strings.Join(members, `
			UNION ALL`) + `
		)
		SELECT w.id, d.title, w.depth, w.types, w.edge_props
		FROM walk w
		JOIN documents d ON d.id = w.id
		WHERE w.depth > 0
		ORDER BY w.depth
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("traversing from %s: %w", q.StartID, err)
	}
	defer rows.Close()

	var hits []TraversalHit
	for rows.Next() {
		var hit TraversalHit
		var types string
		var propsJSON sql.NullString

		if err := rows.Scan(&hit.DocumentID, &hit.Title, &hit.Depth, &types, &propsJSON); err != nil {
			return nil, fmt.Errorf("scanning traversal row: %w", err)
		}

		hit.RelationTypes = splitTypes(types)
		if propsJSON.Valid && propsJSON.String != "" && propsJSON.String != "null" {
			if err := json.Unmarshal([]byte(propsJSON.String), &hit.Properties); err != nil {
				return nil, fmt.Errorf("unmarshaling properties: %w", err)
			}
		}

		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// FindPaths enumerates directed paths from start to end, ordered by
// increasing length and capped at MaxPathResults.
func (s *SQLiteStore) FindPaths(ctx context.Context, q PathQuery) ([]Path, error) {
	depth := q.depth()

	var filter string
	filterArgs := []any{}
	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			filterArgs = append(filterArgs, string(t))
		}
		filter = ` AND r.type IN (` + strings.Join(placeholders, ",") + `)`
	}

	query := `
		WITH RECURSIVE walk(id, depth, path, types) AS (
			SELECT ?, 0, '/' || ? || '/', ''
			UNION ALL
			SELECT r.target_id, w.depth + 1,
			       w.path || r.target_id || '/',
			       CASE WHEN w.types = '' THEN r.type ELSE w.types || ',' || r.type END
			FROM walk w
			JOIN relations r ON r.source_id = w.id
			WHERE w.depth < ?` + filter + `
			  AND instr(w.path, '/' || r.target_id || '/') = 0
		)
		SELECT path, types, depth FROM walk
		WHERE id = ? AND depth > 0
		ORDER BY depth
		LIMIT ?
	`

	args := []any{q.StartID, q.StartID, depth}
	args = append(args, filterArgs...)
	args = append(args, q.EndID, MaxPathResults)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding paths %s -> %s: %w", q.StartID, q.EndID, err)
	}
	defer rows.Close()

	type rawPath struct {
		ids   []string
		types []string
	}
	var raw []rawPath
	for rows.Next() {
		var path, types string
		var d int
		if err := rows.Scan(&path, &types, &d); err != nil {
			return nil, fmt.Errorf("scanning path row: %w", err)
		}
		raw = append(raw, rawPath{
			ids:   strings.Split(strings.Trim(path, "/"), "/"),
			types: strings.Split(types, ","),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	paths := make([]Path, 0, len(raw))
	for _, rp := range raw {
		p, err := s.assemblePath(ctx, rp.ids, rp.types)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	return paths, nil
}

// ShortestPath returns only the minimal-length path(s) between two
// documents. No path is an empty, non-error result.
func (s *SQLiteStore) ShortestPath(ctx context.Context, q PathQuery) ([]Path, error) {
	paths, err := s.FindPaths(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}

	minLen := paths[0].Length
	var shortest []Path
	for _, p := range paths {
		if p.Length == minLen {
			shortest = append(shortest, p)
		}
	}
	return shortest, nil
}

// assemblePath resolves titles and edge properties for a path found by
// the CTE. The CTE carries only ids and types; the handful of surviving
// paths get their detail filled in here.
func (s *SQLiteStore) assemblePath(ctx context.Context, ids, types []string) (Path, error) {
	p := Path{Length: len(ids) - 1}

	for _, id := range ids {
		var title string
		err := s.db.QueryRowContext(ctx, `SELECT title FROM documents WHERE id = ?`, id).Scan(&title)
		if err != nil && err != sql.ErrNoRows {
			return Path{}, fmt.Errorf("resolving path node %s: %w", id, err)
		}
		p.Nodes = append(p.Nodes, PathNode{ID: id, Title: title})
	}

	for i, typ := range types {
		edge := PathEdge{
			Source: ids[i],
			Target: ids[i+1],
			Type:   relations.RelationType(typ),
		}

		var propsJSON sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT properties FROM relations WHERE source_id = ? AND target_id = ? AND type = ?`,
			edge.Source, edge.Target, typ,
		).Scan(&propsJSON)
		if err != nil && err != sql.ErrNoRows {
			return Path{}, fmt.Errorf("resolving path edge: %w", err)
		}
		if propsJSON.Valid && propsJSON.String != "" && propsJSON.String != "null" {
			if err := json.Unmarshal([]byte(propsJSON.String), &edge.Properties); err != nil {
				return Path{}, fmt.Errorf("unmarshaling properties: %w", err)
			}
		}

		p.Edges = append(p.Edges, edge)
	}

	return p, nil
}

func splitTypes(csv string) []relations.RelationType {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]relations.RelationType, len(parts))
	for i, p := range parts {
		out[i] = relations.RelationType(p)
	}
	return out
}
