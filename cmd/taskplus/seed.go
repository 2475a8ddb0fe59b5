package main

import (
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/spf13/cobra"

	"github.com/abdirisakgelle/taskplus/internal/application"
	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/registry"
)

const adminRole domain.RoleKey = "admin"

func newSeedCommand() *cobra.Command {
	var (
		username string
		email    string
		password string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the table, load the permission catalog and add an admin user",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if password == "" {
				return errors.New("--admin-password is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			ctx, seg := xray.BeginSegment(cmd.Context(), "taskplus-seed")
			defer func() { seg.Close(err) }()

			if err := a.db.EnsureTable(ctx); err != nil {
				return fmt.Errorf("ensure table: %w", err)
			}
			cat, err := registry.Default()
			if err != nil {
				return err
			}
			if err := a.registry.Seed(ctx, cat.Permissions, cat.Roles); err != nil {
				return fmt.Errorf("seed registry: %w", err)
			}
			a.logger.Info(ctx, "registry seeded", "permissions", len(cat.Permissions), "roles", len(cat.Roles))

			user, err := a.auth.Register(ctx, domain.User{Username: username, Email: email}, password)
			if errors.Is(err, domain.ErrConflict) {
				a.logger.Warn(ctx, "admin user already exists", "username", username)
				return nil
			}
			if err != nil {
				return fmt.Errorf("register admin: %w", err)
			}
			roles := []domain.RoleKey{adminRole}
			if _, err := a.access.UpsertUserAccess(ctx, user.ID, application.AccessPatch{Roles: &roles}); err != nil {
				return fmt.Errorf("grant admin role: %w", err)
			}
			a.logger.Info(ctx, "admin user created", "user_id", user.ID, "username", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "admin-username", "admin", "username of the initial admin")
	cmd.Flags().StringVar(&email, "admin-email", "admin@taskplus.local", "email of the initial admin")
	cmd.Flags().StringVar(&password, "admin-password", "", "password of the initial admin (min 8 characters)")
	return cmd
}
