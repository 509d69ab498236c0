package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/task-tracker/internal/auth"
	"github.com/Tomlord1122/task-tracker/internal/database"
	"github.com/Tomlord1122/task-tracker/internal/notify"
	"github.com/Tomlord1122/task-tracker/internal/repository"
	"github.com/Tomlord1122/task-tracker/internal/server"
	"github.com/Tomlord1122/task-tracker/internal/service"
)

const hubBuffer = 32

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reminder dispatcher",
		RunE:  a.runServe,
	}
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	tokens, err := auth.NewIssuer(a.cfg.Auth)
	if err != nil {
		return err
	}

	dbService, err := a.openDatabase()
	if err != nil {
		return err
	}
	if a.cfg.Database.AutoMigrate {
		a.log.Info("running database auto-migration")
		if err := dbService.Migrate(); err != nil {
			_ = dbService.Close()
			return err
		}
	}
	gormDB := dbService.GetDB()

	users := repository.NewGormUserRepository(gormDB)
	categories := repository.NewGormCategoryRepository(gormDB)
	reminders := repository.NewGormReminderRepository(gormDB)

	hub := notify.NewHub(hubBuffer, a.log)
	notifier := notify.NewTaskNotifier(hub, notify.NewStoreScheduler(reminders), a.log)
	dispatcher := notify.NewDispatcher(reminders, users, notify.NewMailer(a.cfg.Mail, a.log), a.cfg.Reminders, a.cfg.Mail.AppURL, a.log)

	apiServer := server.NewHTTPServer(a.cfg.HTTP, server.Deps{
		Tasks:      service.NewTaskService(repository.NewGormTaskRepository(gormDB), users, categories, notifier, a.log),
		Categories: service.NewCategoryService(categories, a.log),
		Users:      users,
		Tokens:     tokens,
		Hub:        hub,
		DB:         dbService,
		Log:        a.log,
	})

	if err := dispatcher.Start(); err != nil {
		_ = dbService.Close()
		return err
	}

	done := make(chan bool, 1)
	go a.gracefulShutdown(apiServer, dispatcher, dbService, done)

	a.log.WithField("addr", apiServer.Addr).Info("starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}

	<-done
	a.log.Info("graceful shutdown complete")
	return nil
}

func (a *app) gracefulShutdown(apiServer *http.Server, dispatcher *notify.Dispatcher, dbService database.Service, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	a.log.Info("shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		a.log.WithError(err).Warn("server forced to shutdown")
	}

	dispatcher.Stop(ctxTimeout)

	if err := dbService.Close(); err != nil {
		a.log.WithError(err).Error("closing database connection pool")
	}

	done <- true
}
