package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/checkedin/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Create the tables, indexes and the checkout_by_nickname procedure.
Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, rootOpts.Config.Database.DSN())
			if err != nil {
				return WrapExitError(ExitCommandError, "database", err)
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return err
		},
	}
}
