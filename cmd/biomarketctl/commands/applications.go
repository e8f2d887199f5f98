package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zaki-44/bio-hackathon/internal/model"
)

var (
	// applications flags
	statusFilter string
	denyReason   string
)

var applicationsCmd = &cobra.Command{
	Use:     "applications",
	Aliases: []string{"apps"},
	Short:   "Review farmer applications",
	Long: `Review farmer applications without going through the admin API.

Subcommands:
  list     - List applications, optionally by status
  approve  - Approve an application and create the farmer account
  deny     - Deny an application`,
}

var applicationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := open()
		if err != nil {
			return err
		}
		defer rt.Close()
		svc, err := rt.services()
		if err != nil {
			return err
		}

		apps, err := svc.Apps.List(cmd.Context(), nil, model.ApplicationStatus(statusFilter))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tFARM\tSTATUS\tSUBMITTED")
		for _, a := range apps {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.Username, a.FarmName, a.Status, a.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var applicationsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
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

		res, err := svc.Apps.Approve(cmd.Context(), nil, id)
		if err != nil {
			return err
		}
		switch {
		case res.AlreadyApproved:
			fmt.Fprintf(cmd.OutOrStdout(), "application %d was already approved\n", id)
		case res.UserCreated:
			fmt.Fprintf(cmd.OutOrStdout(), "application %d approved, farmer %s created (id %d)\n", id, res.User.Username, res.User.ID)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "application %d approved, existing user %s reused\n", id, res.User.Username)
		}
		return nil
	},
}

var applicationsDenyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
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

		a, err := svc.Apps.Deny(cmd.Context(), nil, id, denyReason)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "application %d denied: %s\n", a.ID, *a.DenialReason)
		return nil
	},
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func init() {
	applicationsListCmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, approved, denied)")
	applicationsDenyCmd.Flags().StringVar(&denyReason, "reason", "", "Reason shown to the applicant")

	applicationsCmd.AddCommand(applicationsListCmd, applicationsApproveCmd, applicationsDenyCmd)
	rootCmd.AddCommand(applicationsCmd)
}
