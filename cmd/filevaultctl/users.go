package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"filevault/internal/database"
	"filevault/internal/models"
	"filevault/internal/repository"
	"filevault/internal/security"
	"filevault/internal/service"
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an administrator account",
	Long: `Create an active administrator account. Administrators can list every
user through /api/user/admin/users/.

Examples:
  filevaultctl createsuperuser --email admin@example.com --password s3cret`,
	RunE: runCreateSuperuser,
}

func init() {
	createSuperuserCmd.Flags().String("email", "", "administrator e-mail (required)")
	createSuperuserCmd.Flags().String("password", "", "administrator password (required)")
	createSuperuserCmd.Flags().String("first-name", "", "first name")
	createSuperuserCmd.Flags().String("last-name", "", "last name")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createSuperuserCmd)
}

func runCreateSuperuser(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	firstName, _ := cmd.Flags().GetString("first-name")
	lastName, _ := cmd.Flags().GetString("last-name")

	user, err := newSuperuser(email, password, firstName, lastName)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, "filevaultctl")
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := repository.NewUserRepository(pool).Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return fmt.Errorf("a user with email %s already exists", user.Email)
		}
		return fmt.Errorf("create superuser: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "superuser %s created (id %d)\n", user.Email, user.ID)
	return nil
}

func newSuperuser(email, password, firstName, lastName string) (models.User, error) {
	email = service.NormalizeEmail(email)
	if email == "" {
		return models.User{}, errors.New("email must not be empty")
	}
	if password == "" {
		return models.User{}, errors.New("password must not be empty")
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	return models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      true,
	}, nil
}
