package server

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-tracker/internal/auth"
	"github.com/Tomlord1122/task-tracker/internal/config"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/notify"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Tasks      service.TaskService
	Categories service.CategoryService
	Users      repository.UserRepository
	Tokens     *auth.Issuer
	Hub        *notify.Hub
	DB         database.Service
	Log        logrus.FieldLogger
}

type Server struct {
	cfg        config.HTTPConfig
	tasks      service.TaskService
	categories service.CategoryService
	users      repository.UserRepository
	tokens     *auth.Issuer
	hub        *notify.Hub
	db         database.Service
	log        logrus.FieldLogger
}

func New(cfg config.HTTPConfig, deps Deps) *Server {
	return &Server{
		cfg:        cfg,
		tasks:      deps.Tasks,
		categories: deps.Categories,
		users:      deps.Users,
		tokens:     deps.Tokens,
		hub:        deps.Hub,
		db:         deps.DB,
		log:        deps.Log,
	}
}

// NewHTTPServer builds the listening server around the API handler.
func NewHTTPServer(cfg config.HTTPConfig, deps Deps) *http.Server {
	appServer := New(cfg, deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  cfg.IdleTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
