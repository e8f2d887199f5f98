package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zaki-44/bio-hackathon/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := app.Migrate(rt.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
