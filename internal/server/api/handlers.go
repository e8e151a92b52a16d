// Package api exposes the relation engine and graph store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/systemshift/docgraph/internal/relations"
	"github.com/systemshift/docgraph/internal/server/graph"
)

// Server holds the HTTP server dependencies
type Server struct {
	store     graph.Store
	validator *relations.Validator
}

// New creates a new API server
func New(store graph.Store) *Server {
	return &Server{
		store:     store,
		validator: relations.NewValidator(store),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errUnknownRelationType rejects types outside the closed enumeration at
// the API boundary.
var errUnknownRelationType = errors.New("unknown relation type")

// writeError maps engine errors onto HTTP status codes: missing documents
// and relations are 404, policy rejections are 400, anything else is a
// storage failure and reported as 502 so callers can retry.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case relations.IsNotFound(err):
		status = http.StatusNotFound
	case relations.IsValidationError(err), errors.Is(err, errUnknownRelationType):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// CreateDocumentRequest is the request body for creating a document
type CreateDocumentRequest struct {
	ID    string         `json:"id,omitempty"`
	Title string         `json:"title"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// CreateDocument handles POST /api/documents
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	doc := &relations.Document{
		ID:       req.ID,
		Title:    req.Title,
		Meta:     req.Meta,
		Created:  now,
		Modified: now,
	}

	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/documents/{id}
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{id}
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

// CreateRelationRequest is the request body for creating a relation
type CreateRelationRequest struct {
	SourceID   string                 `json:"source_id"`
	TargetID   string                 `json:"target_id"`
	Type       relations.RelationType `json:"relation_type"`
	Properties map[string]any         `json:"properties,omitempty"`
}

// CreateRelation handles POST /api/relations. The proposal runs through
// the validator; on acceptance the commit plan (primary plus any
// symmetric or inverse counterpart) is written in one transaction.
func (s *Server) CreateRelation(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rel, err := s.createRelation(r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rel)
}

func (s *Server) createRelation(r *http.Request, req CreateRelationRequest) (relations.Relation, error) {
	if !relations.Valid(req.Type) {
		return relations.Relation{}, fmt.Errorf("%w: %q", errUnknownRelationType, req.Type)
	}

	plan, err := s.validator.ValidateAndPrepare(r.Context(), req.SourceID, req.TargetID, req.Type, req.Properties)
	if err != nil {
		return relations.Relation{}, err
	}

	if err := s.store.CommitPlan(r.Context(), plan); err != nil {
		return relations.Relation{}, err
	}

	return plan.Primary, nil
}

// GetRelations handles GET /api/documents/{id}/relations
// Supports query params: ?type=T (repeatable) and ?direction=outgoing|incoming|both
func (s *Server) GetRelations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	exists, err := s.store.DocumentExists(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, &relations.NotFoundError{ID: id})
		return
	}

	direction := relations.ParseDirection(query.Get("direction"))
	typeFilter, ok := parseTypes(query["type"])
	if !ok {
		http.Error(w, "unknown relation type", http.StatusBadRequest)
		return
	}

	rels, err := s.store.GetRelations(r.Context(), id, typeFilter, direction)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"relations": rels,
		"count":     len(rels),
	})
}

// DeleteRelation handles DELETE /api/relations
// Identifies the relation by source, target, and type query parameters.
func (s *Server) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	source := query.Get("source")
	target := query.Get("target")
	relType := query.Get("type")

	if source == "" || target == "" || relType == "" {
		http.Error(w, "source, target, and type query parameters required", http.StatusBadRequest)
		return
	}

	found, err := s.store.DeleteRelation(r.Context(), source, target, relations.RelationType(relType))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, relations.ErrRelationNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": map[string]string{
			"source": source,
			"target": target,
			"type":   relType,
		},
	})
}

// BatchCreateRequest is the request body for creating relations in batch
type BatchCreateRequest struct {
	Relations []CreateRelationRequest `json:"relations"`
}

// BatchItemError reports one failed item of a batch operation
type BatchItemError struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Error    string `json:"error"`
}

// BatchCreateRelations handles POST /api/relations/batch. Items are
// processed independently; failures are collected per item and never
// abort the rest of the batch.
func (s *Server) BatchCreateRelations(w http.ResponseWriter, r *http.Request) {
	var req BatchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var created []relations.Relation
	var failures []BatchItemError

	for _, item := range req.Relations {
		rel, err := s.createRelation(r, item)
		if err != nil {
			failures = append(failures, BatchItemError{
				SourceID: item.SourceID,
				TargetID: item.TargetID,
				Error:    err.Error(),
			})
			continue
		}
		created = append(created, rel)
	}

	status := http.StatusCreated
	if len(failures) > 0 {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, map[string]any{
		"created": created,
		"errors":  failures,
	})
}

// BatchDeleteRequest is the request body for deleting relations in batch
type BatchDeleteRequest struct {
	Relations []struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
		Type     string `json:"relation_type"`
	} `json:"relations"`
}

// BatchDeleteRelations handles DELETE /api/relations/batch
func (s *Server) BatchDeleteRelations(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var deleted []any
	var failures []BatchItemError

	for _, item := range req.Relations {
		found, err := s.store.DeleteRelation(r.Context(), item.SourceID, item.TargetID, relations.RelationType(item.Type))
		switch {
		case err != nil:
			failures = append(failures, BatchItemError{
				SourceID: item.SourceID,
				TargetID: item.TargetID,
				Error:    err.Error(),
			})
		case !found:
			failures = append(failures, BatchItemError{
				SourceID: item.SourceID,
				TargetID: item.TargetID,
				Error:    relations.ErrRelationNotFound.Error(),
			})
		default:
			deleted = append(deleted, item)
		}
	}

	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, map[string]any{
		"deleted": deleted,
		"errors":  failures,
	})
}

// Traverse handles GET /api/documents/{id}/traverse
// Supports query params: ?direction=, ?type= (repeatable), ?exclude=
// (repeatable), ?depth=N
func (s *Server) Traverse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	exists, err := s.store.DocumentExists(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, &relations.NotFoundError{ID: id})
		return
	}

	typeFilter, ok := parseTypes(query["type"])
	if !ok {
		http.Error(w, "unknown relation type", http.StatusBadRequest)
		return
	}
	exclude, ok := parseTypes(query["exclude"])
	if !ok {
		http.Error(w, "unknown relation type", http.StatusBadRequest)
		return
	}

	hits, err := s.store.Traverse(r.Context(), graph.TraversalQuery{
		StartID:   id,
		Direction: relations.ParseDirection(query.Get("direction")),
		Types:     typeFilter,
		Exclude:   exclude,
		MaxDepth:  parseDepth(query.Get("depth")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start":   id,
		"results": hits,
		"count":   len(hits),
	})
}

// FindPaths handles GET /api/paths
// Requires ?start= and ?end=; supports ?type= (repeatable) and ?depth=N.
func (s *Server) FindPaths(w http.ResponseWriter, r *http.Request) {
	s.pathQuery(w, r, s.store.FindPaths)
}

// ShortestPath handles GET /api/paths/shortest
func (s *Server) ShortestPath(w http.ResponseWriter, r *http.Request) {
	s.pathQuery(w, r, s.store.ShortestPath)
}

func (s *Server) pathQuery(w http.ResponseWriter, r *http.Request, run func(context.Context, graph.PathQuery) ([]graph.Path, error)) {
	query := r.URL.Query()
	start := query.Get("start")
	end := query.Get("end")

	if start == "" || end == "" {
		http.Error(w, "start and end query parameters required", http.StatusBadRequest)
		return
	}

	// A missing endpoint short-circuits before the path search.
	for _, id := range []string{start, end} {
		exists, err := s.store.DocumentExists(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if !exists {
			writeError(w, &relations.NotFoundError{ID: id})
			return
		}
	}

	typeFilter, ok := parseTypes(query["type"])
	if !ok {
		http.Error(w, "unknown relation type", http.StatusBadRequest)
		return
	}

	paths, err := run(r.Context(), graph.PathQuery{
		StartID:  start,
		EndID:    end,
		Types:    typeFilter,
		MaxDepth: parseDepth(query.Get("depth")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// No path between two existing documents is a valid, empty result.
	if paths == nil {
		paths = []graph.Path{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start": start,
		"end":   end,
		"paths": paths,
		"count": len(paths),
	})
}

func parseDepth(s string) int {
	if s == "" {
		return 0
	}
	depth, err := strconv.Atoi(s)
	if err != nil || depth < 0 {
		return 0
	}
	return depth
}

func parseTypes(values []string) ([]relations.RelationType, bool) {
	if len(values) == 0 {
		return nil, true
	}
	out := make([]relations.RelationType, 0, len(values))
	for _, v := range values {
		t := relations.RelationType(v)
		if !relations.Valid(t) {
			return nil, false
		}
		out = append(out, t)
	}
	return out, true
}
