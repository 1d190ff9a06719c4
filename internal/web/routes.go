package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/NickRemizov/Padel-Galleries/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	peopleHandler := handlers.NewPeopleHandler(s.service)
	facesHandler := handlers.NewFacesHandler(s.service)
	clustersHandler := handlers.NewClustersHandler(s.service)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// People
		r.Get("/people", peopleHandler.List)
		r.Post("/people", peopleHandler.Create)
		r.Post("/people/from-cluster", clustersHandler.FromCluster)
		r.Get("/people/{id}", peopleHandler.Get)
		r.Put("/people/{id}", peopleHandler.Update)
		r.Delete("/people/{id}", peopleHandler.Delete)
		r.Put("/people/{id}/avatar", peopleHandler.SetAvatar)
		r.Get("/people/{id}/faces", peopleHandler.Faces)
		r.Post("/people/{id}/verify", peopleHandler.Verify)
		r.Post("/people/{id}/batch-verify", peopleHandler.BatchVerify)
		r.Post("/people/{id}/unlink", peopleHandler.Unlink)

		// Faces
		r.Post("/faces/match", facesHandler.Match)
		r.Post("/faces/assign", facesHandler.Assign)
		r.Post("/faces/{id}/clear", facesHandler.Clear)

		// Clusters
		r.Post("/clusters", clustersHandler.Compute)
	})
}
