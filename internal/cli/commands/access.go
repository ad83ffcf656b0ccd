package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAccessCmd creates the access command
func NewAccessCmd() *cobra.Command {
	var roles []string

	cmd := &cobra.Command{
		Use:   "access [org-id]",
		Short: "Check your access to an organization",
		Long: `Ask the server whether you may act in an organization.

Without --role any membership passes. With one or more --role flags your
role must be one of them. Defaults to the selected organization.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var orgID string
			if len(args) == 1 {
				orgID = args[0]
			}
			return runAccess(orgID, roles, WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringSliceVar(&roles, "role", nil, "Allowed role (owner, admin, member, guest); repeatable")

	return cmd
}

func runAccess(orgID string, roles []string, opts ...Option) error {
	rt := newRuntime(opts...)

	apiClient, cfg, err := rt.authedClient()
	if err != nil {
		return err
	}

	if orgID == "" {
		orgID = cfg.SelectedOrgID
	}
	if orgID == "" {
		return fmt.Errorf("organization id is required (pass it or run 'orbo orgs select')")
	}

	accessCtx, err := apiClient.CheckAccess(orgID, roles...)
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(rt.out, "✓ Access granted to %s\n", accessCtx.OrgID)
	fmt.Fprintf(rt.out, "  Role: %s\n", accessCtx.Role)
	if accessCtx.Superadmin {
		fmt.Fprintln(rt.out, "  Via superadmin")
	}
	if len(roles) > 0 {
		fmt.Fprintf(rt.out, "  Allowed: %s\n", strings.Join(roles, ", "))
	}
	return nil
}
