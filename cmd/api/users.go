package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Tomlord1122/task-tracker/internal/auth"
	"github.com/Tomlord1122/task-tracker/internal/domain"
	"github.com/Tomlord1122/task-tracker/internal/repository"
)

func userCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userAddCmd(a))
	return cmd
}

func userAddCmd(a *app) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbService, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer dbService.Close()

			user := &domain.User{Name: name, Email: email}
			if err := repository.NewGormUserRepository(dbService.GetDB()).Create(cmd.Context(), user); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("a user with email %s already exists", email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s <%s>)\n", user.ID, user.Name, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address used for reminders")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewIssuer(a.cfg.Auth)
			if err != nil {
				return err
			}

			dbService, err := a.openDatabase()
			if err != nil {
				return err
			}
			defer dbService.Close()

			if _, err := repository.NewGormUserRepository(dbService.GetDB()).FindByID(cmd.Context(), userID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("user %d does not exist", userID)
				}
				return err
			}

			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id the token identifies")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
