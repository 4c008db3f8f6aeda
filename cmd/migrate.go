package main

import (
	"fmt"
	"time"

	"github.com/mehdiessalah/eventyBackend/config"
	"github.com/mehdiessalah/eventyBackend/database"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			results, err := provider.Up(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %05d %s\n", r.Source.Version, r.Duration.Round(time.Millisecond))
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations to run")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			r, err := provider.Down(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DOWN %05d %s\n", r.Source.Version, r.Duration.Round(time.Millisecond))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := newProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			statuses, err := provider.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				applied := "pending"
				if s.State == goose.StateApplied {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-25s %s\n", s.Source.Version, applied, s.Source.Path)
			}
			return nil
		},
	})

	return cmd
}

func newProvider() (*goose.Provider, error) {
	cfg := config.Load()
	if cfg.StorageDriver != config.StorageDriverPostgres {
		return nil, fmt.Errorf("migrations need STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.StorageDriver)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return database.NewMigrator(db)
}
