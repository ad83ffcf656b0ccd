package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orbo-dev/orbo/internal/cli/client"
	"github.com/orbo-dev/orbo/internal/cli/orgselect"
	"github.com/orbo-dev/orbo/internal/cli/userconfig"
)

// NewOrgsCmd creates the orgs command and its select subcommand
func NewOrgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orgs",
		Aliases: []string{"organizations"},
		Short:   "List your organizations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrgs(WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "select [org-id]",
		Short: "Select the organization used by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var orgID string
			if len(args) == 1 {
				orgID = args[0]
			}
			return runOrgsSelect(orgID, WithOutput(cmd.OutOrStdout()))
		},
	})

	return cmd
}

func runOrgs(opts ...Option) error {
	rt := newRuntime(opts...)

	apiClient, cfg, err := rt.authedClient()
	if err != nil {
		return err
	}

	orgs, err := apiClient.ListOrganizations()
	if err != nil {
		return explain(err)
	}

	if len(orgs) == 0 {
		fmt.Fprintln(rt.out, "No organizations found.")
		return nil
	}

	w := tabwriter.NewWriter(rt.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tROLE")
	for _, org := range orgs {
		marker := ""
		if org.ID == cfg.SelectedOrgID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, org.ID, org.Name, org.Role)
	}
	return w.Flush()
}

func runOrgsSelect(orgID string, opts ...Option) error {
	rt := newRuntime(opts...)

	apiClient, _, err := rt.authedClient()
	if err != nil {
		return err
	}

	orgs, err := apiClient.ListOrganizations()
	if err != nil {
		return explain(err)
	}

	var selected *client.Organization
	if orgID != "" {
		selected, err = orgselect.Find(orgs, orgID)
	} else {
		selected, err = rt.selectOrg(orgs)
	}
	if err != nil {
		return err
	}

	if err := userconfig.Update(func(c *userconfig.UserConfig) {
		c.SelectedOrgID = selected.ID
	}); err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "✓ Selected %s (%s)\n", selected.Name, selected.ID)
	return nil
}
