package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picstore/picstore/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "db",
		Aliases: []string{"database"},
		Short:   "Manage the backing database",
		Long:    "Create tables and install the default permission matrix.",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

// ---------- db migrate ----------

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the resource, token and permission tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Migrate(context.Background(), db); err != nil {
				return err
			}
			fmt.Println("Migration complete.")
			return nil
		},
	}
}

// ---------- db seed ----------

func newDBSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default permission matrix",
		Long: `Install the default permission matrix into the per-table permission
side tables. Existing grant rows are replaced, so this resets any manual
matrix edits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			if err := store.Migrate(ctx, db); err != nil {
				return err
			}
			if err := store.SeedPermissions(ctx, db); err != nil {
				return err
			}
			fmt.Println("Permission matrix seeded.")
			return nil
		},
	}
}
