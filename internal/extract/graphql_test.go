package extract

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
)

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// twoUserExtraction models one company with an admin and a buyer, each
// carrying a distinct role, no teams.
func twoUserExtraction() *magento.Extraction {
	data := &magento.Extraction{}
	data.Customer = magento.GraphQLCustomer{Email: "admin@acme.example", Firstname: "Ada", Lastname: "Admin"}
	data.Company = &magento.GraphQLCompany{
		ID:           b64("2"),
		Name:         "Acme Corp",
		LegalName:    "Acme Corporation",
		Email:        "info@acme.example",
		CompanyAdmin: magento.GraphQLCustomer{Email: "admin@acme.example", Firstname: "Ada", Lastname: "Admin"},
	}
	data.Company.Structure.Items = []magento.StructureItem{
		{
			ID: "1", ParentID: "",
			Entity: magento.StructureEntity{
				Typename:  magento.TypenameCustomer,
				Email:     "admin@acme.example",
				Firstname: "Ada", Lastname: "Admin",
				Status: "ACTIVE",
				Role:   &magento.GraphQLRoleRef{ID: b64("6"), Name: "Admin"},
			},
		},
		{
			ID: "2", ParentID: "1",
			Entity: magento.StructureEntity{
				Typename:  magento.TypenameCustomer,
				Email:     "buyer@acme.example",
				Firstname: "Bob", Lastname: "Buyer",
				JobTitle: "Buyer",
				Status:   "ACTIVE",
				Role:     &magento.GraphQLRoleRef{ID: b64("7"), Name: "Buyer"},
			},
		},
	}
	return data
}

func TestGraphQLExtractTwoUsersNoTeams(t *testing.T) {
	set, err := NewGraphQL(nil).Extract(twoUserExtraction())
	require.NoError(t, err)

	assert.Equal(t, "2", set.Company.ID, "company ID must be decoded")
	assert.Equal(t, "Acme Corp", set.Company.Name)
	assert.Equal(t, "admin@acme.example", set.Company.AdminEmail)

	require.Len(t, set.Users, 2)
	require.Len(t, set.Teams, 0)
	require.Len(t, set.Roles, 2)

	admin, ok := set.UserByEmail("admin@acme.example")
	require.True(t, ok)
	assert.True(t, admin.CompanyAdmin)
	assert.Equal(t, "6", admin.RoleID)

	buyer, ok := set.UserByEmail("buyer@acme.example")
	require.True(t, ok)
	assert.False(t, buyer.CompanyAdmin)
	assert.Equal(t, "7", buyer.RoleID)
	assert.Equal(t, "Buyer", buyer.JobTitle)

	// One resolved hierarchy edge: buyer reports to admin.
	require.Len(t, set.Hierarchy, 1)
	assert.Equal(t, entity.KindUser, set.Hierarchy[0].Child.Kind)
	assert.Equal(t, "buyer@acme.example", set.Hierarchy[0].Child.UserEmail)
	assert.Equal(t, "admin@acme.example", set.Hierarchy[0].Parent.UserEmail)
}

func TestGraphQLExtractNoOpaqueIDsLeakIntoOutput(t *testing.T) {
	set, err := NewGraphQL(nil).Extract(twoUserExtraction())
	require.NoError(t, err)

	for _, id := range []string{
		entity.CompanyGroupID(set.Company.ID),
		entity.RoleUniqueID(set.Company.ID, set.Roles[0].ID),
		entity.RoleUniqueID(set.Company.ID, set.Roles[1].ID),
	} {
		assert.False(t, strings.Contains(id, "="), "opaque encoded substring in unique ID %q", id)
		assert.False(t, strings.Contains(id, b64("2")), "opaque company ID in unique ID %q", id)
	}
}

func TestGraphQLExtractDeduplicatesRoles(t *testing.T) {
	data := twoUserExtraction()
	// Second user shares the first user's role.
	data.Company.Structure.Items[1].Entity.Role = &magento.GraphQLRoleRef{ID: b64("6"), Name: "Admin"}

	set, err := NewGraphQL(nil).Extract(data)
	require.NoError(t, err)
	require.Len(t, set.Roles, 1)
	assert.Equal(t, "6", set.Roles[0].ID)
}

func TestGraphQLExtractTeams(t *testing.T) {
	data := twoUserExtraction()
	data.Company.Structure.Items = append(data.Company.Structure.Items, magento.StructureItem{
		ID: "3", ParentID: "1",
		Entity: magento.StructureEntity{
			Typename:    magento.TypenameTeam,
			ID:          b64("5"),
			Name:        "Procurement",
			Description: "Buys things",
		},
	})
	data.Company.Structure.Items[1].Entity.Team = &magento.GraphQLTeamRef{ID: b64("5"), Name: "Procurement"}
	data.Company.Structure.Items[1].ParentID = "3"

	set, err := NewGraphQL(nil).Extract(data)
	require.NoError(t, err)

	require.Len(t, set.Teams, 1)
	assert.Equal(t, "5", set.Teams[0].ID)
	assert.Equal(t, "Procurement", set.Teams[0].Name)

	buyer, _ := set.UserByEmail("buyer@acme.example")
	assert.Equal(t, "5", buyer.TeamID)

	// Buyer's hierarchy parent is now the team node.
	var teamParent bool
	for _, edge := range set.Hierarchy {
		if edge.Child.UserEmail == "buyer@acme.example" && edge.Parent.Kind == entity.KindTeam {
			teamParent = true
			assert.Equal(t, "5", edge.Parent.TeamID)
		}
	}
	assert.True(t, teamParent)
}

func TestGraphQLExtractAdminFlagIsCaseInsensitive(t *testing.T) {
	data := twoUserExtraction()
	data.Company.CompanyAdmin.Email = "ADMIN@Acme.Example"

	set, err := NewGraphQL(nil).Extract(data)
	require.NoError(t, err)
	admin, _ := set.UserByEmail("admin@acme.example")
	assert.True(t, admin.CompanyAdmin)
}

func TestGraphQLExtractInactiveStatus(t *testing.T) {
	data := twoUserExtraction()
	data.Company.Structure.Items[1].Entity.Status = "INACTIVE"

	set, err := NewGraphQL(nil).Extract(data)
	require.NoError(t, err)
	buyer, _ := set.UserByEmail("buyer@acme.example")
	assert.False(t, buyer.Active)
}

func TestGraphQLExtractNoCompanyIsFatal(t *testing.T) {
	data := &magento.Extraction{Customer: magento.GraphQLCustomer{Email: "who@where.example"}}

	_, err := NewGraphQL(nil).Extract(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNoCompany)
}
