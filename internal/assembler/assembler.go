// Package assembler turns an extracted entity set into the vendor-neutral
// authorization graph.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/commerce-iam/magento-fga-sync/internal/appmodel"
	"github.com/commerce-iam/magento-fga-sync/internal/catalog"
	"github.com/commerce-iam/magento-fga-sync/internal/entity"
)

var titleCaser = cases.Title(language.English)

// Build assembles the full graph for one company. The permission catalog
// is registered in its entirety regardless of which entries any role
// grants, so every run exposes the same permission surface.
func Build(set *entity.Set, logger hclog.Logger) *appmodel.Application {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("assembler")

	app := &appmodel.Application{
		Name:        set.Company.Name,
		Description: fmt.Sprintf("Commerce company %s", set.Company.ID),
		Warnings:    append([]string(nil), set.Warnings...),
	}

	buildGroups(app, set)
	buildUsers(app, set)
	buildRoles(app, set, logger)
	buildHierarchy(app, set, logger)
	registerPermissions(app)

	sort.Strings(app.Unclassified)
	return app
}

func buildGroups(app *appmodel.Application, set *entity.Set) {
	app.Groups = append(app.Groups, appmodel.Group{
		ID:   entity.CompanyGroupID(set.Company.ID),
		Name: set.Company.Name,
		Kind: appmodel.GroupCompany,
		Meta: companyMeta(set.Company),
	})
	for _, team := range set.Teams {
		meta := map[string]string{}
		if team.Description != "" {
			meta["description"] = team.Description
		}
		if len(meta) == 0 {
			meta = nil
		}
		app.Groups = append(app.Groups, appmodel.Group{
			ID:   entity.TeamGroupID(team.ID),
			Name: team.Name,
			Kind: appmodel.GroupTeam,
			Meta: meta,
		})
		// Every team belongs to the company group.
		app.TeamNestings = append(app.TeamNestings, appmodel.GroupNesting{
			ChildID:  entity.TeamGroupID(team.ID),
			ParentID: entity.CompanyGroupID(set.Company.ID),
		})
	}
}

func companyMeta(c entity.Company) map[string]string {
	meta := map[string]string{}
	if c.LegalName != "" {
		meta["legal_name"] = c.LegalName
	}
	if c.Email != "" {
		meta["email"] = c.Email
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func buildUsers(app *appmodel.Application, set *entity.Set) {
	companyGroup := entity.CompanyGroupID(set.Company.ID)
	for _, u := range set.Users {
		app.Users = append(app.Users, appmodel.User{
			Email:        u.Email,
			DisplayName:  displayName(u),
			Identity:     u.Email,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			JobTitle:     u.JobTitle,
			Telephone:    u.Telephone,
			Active:       u.Active,
			CompanyAdmin: u.CompanyAdmin,
			CustomerID:   u.CustomerID,
			Placeholder:  u.Placeholder,
		})
		// Every user is a member of the company group, placeholders
		// included.
		app.CompanyMemberships = append(app.CompanyMemberships, appmodel.Membership{
			UserEmail: u.Email,
			GroupID:   companyGroup,
		})
		if u.TeamID != "" {
			app.TeamMemberships = append(app.TeamMemberships, appmodel.Membership{
				UserEmail: u.Email,
				GroupID:   entity.TeamGroupID(u.TeamID),
			})
		}
		if u.RoleID != "" {
			app.RoleAssignments = append(app.RoleAssignments, appmodel.RoleAssignment{
				UserEmail: u.Email,
				RoleID:    entity.RoleUniqueID(u.CompanyID, u.RoleID),
			})
		}
	}
}

func displayName(u entity.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	// Placeholder users synthesize a readable name from the email local
	// part.
	local, _, _ := strings.Cut(u.Email, "@")
	return titleCaser.String(strings.ReplaceAll(local, "_", " "))
}

func buildRoles(app *appmodel.Application, set *entity.Set, logger hclog.Logger) {
	unclassified := map[string]struct{}{}
	for _, role := range set.Roles {
		roleID := entity.RoleUniqueID(role.CompanyID, role.ID)
		app.Roles = append(app.Roles, appmodel.Role{ID: roleID, Name: role.Name})

		seen := map[string]struct{}{}
		for _, perm := range role.Permissions {
			if !perm.Allowed() {
				continue
			}
			if !catalog.Known(perm.ResourceID) {
				if _, dup := unclassified[perm.ResourceID]; !dup {
					unclassified[perm.ResourceID] = struct{}{}
					logger.Debug("permission not in catalog, dropping grant", "resource", perm.ResourceID)
				}
				continue
			}
			if _, dup := seen[perm.ResourceID]; dup {
				continue
			}
			seen[perm.ResourceID] = struct{}{}
			app.RoleGrants = append(app.RoleGrants, appmodel.RoleGrant{
				RoleID:     roleID,
				ResourceID: perm.ResourceID,
			})
		}
	}
	for resource := range unclassified {
		app.Unclassified = append(app.Unclassified, resource)
	}
}

func buildHierarchy(app *appmodel.Application, set *entity.Set, logger hclog.Logger) {
	for _, edge := range set.Hierarchy {
		// Only user→user edges become reporting lines; both endpoints must
		// be known, non-placeholder users and distinct.
		if edge.Child.Kind != entity.KindUser || edge.Parent.Kind != entity.KindUser {
			continue
		}
		child, childOK := set.UserByEmail(edge.Child.UserEmail)
		parent, parentOK := set.UserByEmail(edge.Parent.UserEmail)
		if !childOK || !parentOK {
			logger.Debug("reporting edge references unknown user, dropping",
				"child", edge.Child.UserEmail, "parent", edge.Parent.UserEmail)
			continue
		}
		if child.Placeholder || parent.Placeholder {
			continue
		}
		if strings.EqualFold(child.Email, parent.Email) {
			continue
		}
		app.ReportingEdges = append(app.ReportingEdges, appmodel.ReportsTo{
			UserEmail:    child.Email,
			ManagerEmail: parent.Email,
		})
	}
}

func registerPermissions(app *appmodel.Application) {
	for _, p := range catalog.All() {
		app.Permissions = append(app.Permissions, appmodel.Permission{
			ResourceID:  p.ResourceID,
			DisplayName: p.DisplayName,
			Category:    string(p.Category),
			Access:      string(catalog.AccessFor(p.Category)),
		})
	}
}
