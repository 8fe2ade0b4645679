// Command storectl applies schema migrations and seeds a storefront database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prohmpiriya/storefront/internal/di"
	"github.com/prohmpiriya/storefront/internal/repository"
	"github.com/prohmpiriya/storefront/internal/service"
	"github.com/prohmpiriya/storefront/migrations"
	"github.com/prohmpiriya/storefront/pkg/config"
	"github.com/prohmpiriya/storefront/pkg/database"
	"github.com/prohmpiriya/storefront/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg     *config.Config
		envFile string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Operator tooling for the storefront database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if envFile != "" {
				cfg, err = config.LoadWithPath(envFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			return logger.Init(&logger.Config{Level: cfg.App.LogLevel, ServiceName: "storectl", Development: true})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "read configuration from this .env file")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall command timeout")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded SQL migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cfg, func(m *database.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	})

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withMigrator(cfg, func(m *database.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cfg, func(m *database.Migrator) error {
				return printVersion(cmd, m)
			})
		},
	})

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and demo products when absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := database.NewPostgres(ctx, di.PostgresConfig(cfg, false))
			if err != nil {
				return err
			}
			defer db.Close()

			s := &seeder{
				users:    repository.NewPostgresUserRepository(db.Pool()),
				products: repository.NewPostgresProductRepository(db.Pool()),
				hasher:   service.NewBcryptHasher(cfg.Security.BcryptCost),
				log:      logger.Get(),
			}
			report, err := s.run(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
			if err != nil {
				return err
			}
			logger.Get().Info("seed complete",
				zap.Bool("admin_created", report.adminCreated),
				zap.Int("products_created", report.productsCreated),
			)
			return nil
		},
	}

	root.AddCommand(migrateCmd, seedCmd)
	return root
}

func withMigrator(cfg *config.Config, fn func(m *database.Migrator) error) error {
	m, err := database.NewMigrator(migrations.FS, ".", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func printVersion(cmd *cobra.Command, m *database.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
