package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// user flags
	username string
	email    string
	password string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Long: `Create an admin account.

Examples:
  biomarketctl create-admin --username root --email root@example.com --password s3cret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" || email == "" || password == "" {
			return errors.New("--username, --email and --password are required")
		}
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()
		svc, err := rt.services()
		if err != nil {
			return err
		}

		u, err := svc.Auth.CreateAdmin(cmd.Context(), username, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", u.Username, u.ID)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an existing account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" || password == "" {
			return errors.New("--username and --password are required")
		}
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()
		svc, err := rt.services()
		if err != nil {
			return err
		}

		if err := svc.Auth.ResetPassword(cmd.Context(), username, password); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password for %s updated\n", username)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&username, "username", "", "Admin username")
	createAdminCmd.Flags().StringVar(&email, "email", "", "Admin email")
	createAdminCmd.Flags().StringVar(&password, "password", "", "Admin password")

	resetPasswordCmd.Flags().StringVar(&username, "username", "", "Account username")
	resetPasswordCmd.Flags().StringVar(&password, "password", "", "New password")

	rootCmd.AddCommand(createAdminCmd, resetPasswordCmd)
}
