package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/ws", s.websocketHandler)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasksHandler)
			r.Post("/", s.createTaskHandler)
			r.Get("/{id}", s.getTaskHandler)
			r.Put("/{id}", s.updateTaskHandler)
			r.Delete("/{id}", s.deleteTaskHandler)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategoriesHandler)
			r.Post("/", s.createCategoryHandler)
			r.Put("/{id}", s.updateCategoryHandler)
			r.Delete("/{id}", s.deleteCategoryHandler)
		})
	})

	return r
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task tracker API"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).Error("marshal JSON response")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
