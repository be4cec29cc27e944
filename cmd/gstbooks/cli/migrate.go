package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gstbooks/gstbooks/internal/platform/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			applied, err := db.Migrate(cmd.Context(), rt.pool, rt.logger)
			if err != nil {
				return err
			}
			for _, v := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func migrateNow(ctx context.Context, rt *runtime) error {
	applied, err := db.Migrate(ctx, rt.pool, rt.logger)
	if err != nil {
		return err
	}
	rt.logger.Info("migrations applied", slog.Int("count", len(applied)))
	return nil
}

func newSeedAccountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-accounts",
		Short: "Create the default chart of accounts and fill unset default accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			cs, err := rt.store.SeedAccounts(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d default accounts configured\n", len(cs.DefaultAccounts))
			return nil
		},
	}
}
