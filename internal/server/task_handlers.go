package server

import (
	"net/http"

	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

type taskListResponse struct {
	*service.TaskPage
	Links pageLinks `json:"links"`
}

type taskMutationResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Task    *service.TaskResponse `json:"task,omitempty"`
}

func (s *Server) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.TaskFilters{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Category: q.Get("category"),
		Q:        q.Get("q"),
	}

	page, err := s.tasks.List(r.Context(), currentUser(r.Context()).ID, filters, pageParam(r))
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, taskListResponse{
		TaskPage: page,
		Links:    buildLinks(r.URL, page.Meta),
	})
}

func (s *Server) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "task")
	if !ok {
		return
	}
	task, err := s.tasks.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, task)
}

func (s *Server) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	task, err := s.tasks.Create(r.Context(), currentUser(r.Context()).ID, in)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusCreated, taskMutationResponse{
		Success: true,
		Message: "Task created successfully.",
		Task:    task,
	})
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "task")
	if !ok {
		return
	}
	var in service.TaskInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	task, err := s.tasks.Update(r.Context(), currentUser(r.Context()).ID, id, in)
	if err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, taskMutationResponse{
		Success: true,
		Message: "Task updated successfully.",
		Task:    task,
	})
}

func (s *Server) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r, "task")
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		s.respondWithServiceError(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, taskMutationResponse{
		Success: true,
		Message: "Task deleted successfully.",
	})
}
