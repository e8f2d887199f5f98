package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zaki-44/bio-hackathon/internal/app"
	"github.com/zaki-44/bio-hackathon/internal/seed"
	"github.com/zaki-44/bio-hackathon/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo data",
	Long: `Load demo data. Existing rows are left untouched so seeding can be repeated.

Subcommands:
  products  - farmer_john and a small catalog
  delivery  - transporter1 and three tracked packages`,
}

var seedProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "Seed a demo farmer and catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := app.Migrate(rt.db); err != nil {
			return err
		}

		res, err := seed.Products(cmd.Context(), rt.db, service.NewCredentials(rt.cfg.BcryptCost), rt.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d users, %d products added\n", res.Users, res.Products)
		return nil
	},
}

var seedDeliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Seed a demo transporter and packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := app.Migrate(rt.db); err != nil {
			return err
		}

		res, err := seed.Delivery(cmd.Context(), rt.db, service.NewCredentials(rt.cfg.BcryptCost), rt.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d users, %d packages added\n", res.Users, res.Packages)
		return nil
	},
}

func init() {
	seedCmd.AddCommand(seedProductsCmd, seedDeliveryCmd)
	rootCmd.AddCommand(seedCmd)
}
