package server

import (
	"net/http"

	"github.com/Tomlord1122/task-tracker/internal/service"
)

type categoryListResponse struct {
	*service.CategoryPage
	Links pageLinks `json:"links"`
}

type categoryMutationResponse struct {
	Success  bool                      `json:"success"`
	Message  string                    `json:"message"`
	Category *service.CategoryResponse `json:"category,omitempty"`
}

func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	page, err := s.categories.List(r.Context(), pageParam(r))
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, categoryListResponse{
		CategoryPage: page,
		Links:        buildLinks(r.URL, page.Meta),
	})
}

func (s *Server) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	category, err := s.categories.Create(r.Context(), in)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, categoryMutationResponse{
		Success:  true,
		Message:  "Category created successfully.",
		Category: category,
	})
}

func (s *Server) updateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "category")
	if !ok {
		return
	}
	var in service.CategoryInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	category, err := s.categories.Update(r.Context(), id, in)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, categoryMutationResponse{
		Success:  true,
		Message:  "Category updated successfully.",
		Category: category,
	})
}

func (s *Server) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "category")
	if !ok {
		return
	}
	if err := s.categories.Delete(r.Context(), id); err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, categoryMutationResponse{
		Success: true,
		Message: "Category deleted successfully.",
	})
}
