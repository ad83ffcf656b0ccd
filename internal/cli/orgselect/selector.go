package orgselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/orbo-dev/orbo/internal/cli/client"
)

// Find returns the organization with the given ID
func Find(orgs []client.Organization, id string) (*client.Organization, error) {
	for i := range orgs {
		if orgs[i].ID == id {
			return &orgs[i], nil
		}
	}
	return nil, fmt.Errorf("organization '%s' not found among your memberships", id)
}

// Prompt shows an interactive prompt for the user to select an organization
func Prompt(orgs []client.Organization) (*client.Organization, error) {
	if len(orgs) == 0 {
		return nil, fmt.Errorf("you are not a member of any organization")
	}

	type orgOption struct {
		Label string
		Org   *client.Organization
	}

	options := make([]orgOption, len(orgs))
	for i := range orgs {
		org := &orgs[i]
		options[i] = orgOption{
			Label: fmt.Sprintf("%s (%s, %s)", org.Name, org.ID, org.Role),
			Org:   org,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select an organization",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("organization selection cancelled: %w", err)
	}

	return options[index].Org, nil
}
