package fga

import (
	fgaSdk "github.com/openfga/go-sdk"
	"github.com/openfga/go-sdk/client"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
)

const schemaVersion = "1.1"

// TypeDefinitions returns the authorization model the pushed tuples are
// written against: users with managers, company and team groups, roles
// with assignees, and permissions granted to roles.
func TypeDefinitions() []fgaSdk.TypeDefinition {
	return []fgaSdk.TypeDefinition{
		directType("user", map[string][]string{
			"manager": {"user"},
		}),
		directType("group", map[string][]string{
			"member": {"user"},
			"parent": {"group"},
		}),
		directType("role", map[string][]string{
			"assignee": {"user"},
		}),
		directType("permission", map[string][]string{
			"granted": {"role"},
		}),
	}
}

// directType builds a type whose relations are all directly assignable
// from the listed user types.
func directType(name string, relations map[string][]string) fgaSdk.TypeDefinition {
	usersets := make(map[string]fgaSdk.Userset, len(relations))
	relMeta := make(map[string]fgaSdk.RelationMetadata, len(relations))
	for rel, userTypes := range relations {
		emptyThis := map[string]interface{}{}
		usersets[rel] = fgaSdk.Userset{This: &emptyThis}
		refs := make([]fgaSdk.RelationReference, len(userTypes))
		for i, ut := range userTypes {
			refs[i] = fgaSdk.RelationReference{Type: ut}
		}
		relMeta[rel] = fgaSdk.RelationMetadata{DirectlyRelatedUserTypes: &refs}
	}
	return fgaSdk.TypeDefinition{
		Type:      name,
		Relations: &usersets,
		Metadata:  &fgaSdk.Metadata{Relations: &relMeta},
	}
}

// Tuples flattens the application graph into relationship tuples. Object
// IDs are sanitized here; everything upstream works with raw resource IDs
// and emails.
func Tuples(app *appmodel.Application) []client.ClientTupleKey {
	var tuples []client.ClientTupleKey

	for _, m := range app.CompanyMemberships {
		tuples = append(tuples, client.ClientTupleKey{
			User:     "user:" + SanitizeObjectID(m.UserEmail),
			Relation: "member",
			Object:   "group:" + SanitizeObjectID(m.GroupID),
		})
	}
	for _, m := range app.TeamMemberships {
		tuples = append(tuples, client.ClientTupleKey{
			User:     "user:" + SanitizeObjectID(m.UserEmail),
			Relation: "member",
			Object:   "group:" + SanitizeObjectID(m.GroupID),
		})
	}
	for _, a := range app.RoleAssignments {
		tuples = append(tuples, client.ClientTupleKey{
			User:     "user:" + SanitizeObjectID(a.UserEmail),
			Relation: "assignee",
			Object:   "role:" + SanitizeObjectID(a.RoleID),
		})
	}
	for _, g := range app.RoleGrants {
		tuples = append(tuples, client.ClientTupleKey{
			User:     "role:" + SanitizeObjectID(g.RoleID),
			Relation: "granted",
			Object:   "permission:" + SanitizeObjectID(g.ResourceID),
		})
	}
	for _, n := range app.TeamNestings {
		// The company group is the parent of each team group.
		tuples = append(tuples, client.ClientTupleKey{
			User:     "group:" + SanitizeObjectID(n.ParentID),
			Relation: "parent",
			Object:   "group:" + SanitizeObjectID(n.ChildID),
		})
	}
	for _, r := range app.ReportingEdges {
		tuples = append(tuples, client.ClientTupleKey{
			User:     "user:" + SanitizeObjectID(r.ManagerEmail),
			Relation: "manager",
			Object:   "user:" + SanitizeObjectID(r.UserEmail),
		})
	}
	return tuples
}
