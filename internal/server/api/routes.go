package api

import "github.com/go-chi/chi/v5"

// Routes returns the API route table, mounted under /api by the server
// binary.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/documents", s.CreateDocument)
	r.Get("/documents/{id}", s.GetDocument)
	r.Delete("/documents/{id}", s.DeleteDocument)
	r.Get("/documents/{id}/relations", s.GetRelations)
	r.Get("/documents/{id}/traverse", s.Traverse)

	r.Post("/relations", s.CreateRelation)
	r.Delete("/relations", s.DeleteRelation)
	r.Post("/relations/batch", s.BatchCreateRelations)
	r.Delete("/relations/batch", s.BatchDeleteRelations)

	r.Get("/paths", s.FindPaths)
	r.Get("/paths/shortest", s.ShortestPath)

	return r
}
