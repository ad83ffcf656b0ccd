package orgselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbo-dev/orbo/internal/cli/client"
)

func TestFind(t *testing.T) {
	orgs := []client.Organization{{ID: "o1", Name: "Acme"}, {ID: "o2", Name: "Globex"}}

	org, err := Find(orgs, "o2")
	require.NoError(t, err)
	assert.Equal(t, "Globex", org.Name)

	_, err = Find(orgs, "o3")
	assert.Error(t, err)
}

func TestPromptWithoutOrganizations(t *testing.T) {
	_, err := Prompt(nil)
	assert.EqualError(t, err, "you are not a member of any organization")
}
