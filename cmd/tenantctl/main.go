// Package main is tenantctl, the operator CLI for schema migrations and
// local auth accounts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/tenantcore/internal/auth/local"
	"github.com/kiranshivaraju/tenantcore/internal/config"
	"github.com/kiranshivaraju/tenantcore/internal/store"
	"github.com/kiranshivaraju/tenantcore/pkg/models"
)

const commandTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	databaseURL := os.Getenv("DATABASE_URL")

	root := &cobra.Command{
		Use:           "tenantctl",
		Short:         "Operator tooling for tenantcore",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("database URL is required (flag --database-url or env DATABASE_URL)")
			}
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&databaseURL, "database-url", databaseURL, "Postgres connection URL (env DATABASE_URL)")

	root.AddCommand(newMigrateCmd(&databaseURL))
	root.AddCommand(newAccountCmd(&databaseURL))
	return root
}

func newMigrateCmd(databaseURL *string) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.RunMigrations(*databaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, dirty, err := store.MigrationVersion(*databaseURL)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	}

	migrateCmd.AddCommand(upCmd, versionCmd)
	return migrateCmd
}

func newAccountCmd(databaseURL *string) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage local auth accounts",
	}

	var email, password, role string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local auth account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			pool, err := store.Connect(ctx, config.DatabaseConfig{
				URL:             *databaseURL,
				MaxOpenConns:    2,
				MaxIdleConns:    1,
				ConnMaxLifetime: time.Minute,
			})
			if err != nil {
				return err
			}
			defer pool.Close()

			a, err := local.CreateAccount(ctx, store.NewPostgresStore(pool), email, password, models.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account created id=%s email=%s role=%s\n", a.ID, a.Email, a.Role)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "Account email")
	createCmd.Flags().StringVar(&password, "password", "", "Account password (min 6 characters)")
	createCmd.Flags().StringVar(&role, "role", string(models.RoleCustomer), "Role claim: admin|staff|customer")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	accountCmd.AddCommand(createCmd)
	return accountCmd
}
