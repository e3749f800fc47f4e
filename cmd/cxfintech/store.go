package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MekdelawitGebre/customer-experience-fintech/infrastructure/persistence"
)

func schemaCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the banks and reviews tables",
		Long: `Create the banks and reviews tables in DB_URL. Running it again leaves
existing tables and rows untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			if err := persistence.CreateSchema(cmd.Context(), db); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", db.Dialect())
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		envFile string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored review to the fallback CSV",
		Long: `Write every stored review, joined with its bank, to a CSV snapshot. The
dashboard reads the snapshot when the database cannot be reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.reviewStore(cmd.Context())
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = a.cfg.FallbackCSV()
			}
			n, err := store.ExportSnapshot(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", path, n)
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	cmd.Flags().StringVar(&out, "out", "", "Snapshot path (default: FALLBACK_CSV)")
	return cmd
}
