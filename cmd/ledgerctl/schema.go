package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerly/ledgerly/internal/config"
	"github.com/ledgerly/ledgerly/internal/infra"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

func createSchemaCmd() *cobra.Command {
	var apply bool
	c := &cobra.Command{
		Use:   "schema",
		Short: "print or apply the database schema",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runSchema(cmd.Context(), cmd, apply); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				os.Exit(1)
			}
		},
	}
	c.Flags().BoolVar(&apply, "apply", false, "apply the schema to DATABASE_URL instead of printing it")
	return c
}

func runSchema(ctx context.Context, cmd *cobra.Command, apply bool) error {
	if !apply {
		_, err := fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName+"-ctl")
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
