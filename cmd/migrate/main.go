// Command migrate applies or reverts the embedded schema migrations.
//
//	migrate up
//	migrate down --steps 1
//	migrate status
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskshare/taskshare/internal/repository"
	"github.com/taskshare/taskshare/migrations"
)

// migrator is the part of the repository the commands drive.
type migrator interface {
	MigrateUp(ctx context.Context, all []migrations.Migration) ([]string, error)
	MigrateDown(ctx context.Context, all []migrations.Migration, steps int) ([]string, error)
	AppliedMigrations(ctx context.Context) ([]string, error)
	Close()
}

type openFunc func(ctx context.Context, databaseURL string) (migrator, error)

func openRepository(ctx context.Context, databaseURL string) (migrator, error) {
	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return repo, nil
}

type rootOptions struct {
	databaseURL string
	timeout     time.Duration
	open        openFunc
}

func main() {
	if err := newRootCmd(openRepository).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	opts := &rootOptions{open: open}

	rootCmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or revert the taskshare database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (default $DATABASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")

	rootCmd.AddCommand(upCmd(opts))
	rootCmd.AddCommand(downCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))

	return rootCmd
}

// withMigrator loads the embedded migrations, connects and runs fn under
// the configured timeout.
func (o *rootOptions) withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m migrator, all []migrations.Migration) error) error {
	if o.databaseURL == "" {
		return fmt.Errorf("--database-url or DATABASE_URL is required")
	}

	all, err := migrations.All()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	m, err := o.open(ctx, o.databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(ctx, m, all)
}

func upCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m migrator, all []migrations.Migration) error {
				applied, err := m.MigrateUp(ctx, all)
				for _, name := range applied {
					fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
				}
				if err == nil && len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				}
				return err
			})
		},
	}
}

func downCmd(opts *rootOptions) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return opts.withMigrator(cmd, func(ctx context.Context, m migrator, all []migrations.Migration) error {
				reverted, err := m.MigrateDown(ctx, all, steps)
				for _, name := range reverted {
					fmt.Fprintln(cmd.OutOrStdout(), "reverted", name)
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	return cmd
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withMigrator(cmd, func(ctx context.Context, m migrator, all []migrations.Migration) error {
				applied, err := m.AppliedMigrations(ctx)
				if err != nil {
					return err
				}
				done := make(map[string]bool, len(applied))
				for _, name := range applied {
					done[name] = true
				}
				for _, mig := range all {
					state := "pending"
					if done[mig.Name] {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", state, mig.Name)
				}
				return nil
			})
		},
	}
}
