package extract

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
)

// REST extracts the normalized entity set from the multi-call REST
// responses. The hierarchy endpoint supplies entity IDs only: every
// customer node other than the authenticated caller becomes a placeholder
// user with a synthetic email and an empty profile. That is a documented
// fidelity degradation of the REST path, not an error.
type REST struct {
	logger hclog.Logger
}

// NewREST builds a REST extractor.
func NewREST(logger hclog.Logger) *REST {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &REST{logger: logger.Named("extract")}
}

// RESTInput carries the per-endpoint responses one REST extraction needs.
// TeamDetails maps team entity ID to the per-team detail response; teams
// missing from the map fall back to a generated display name.
type RESTInput struct {
	CurrentUser *magento.Customer
	Company     *magento.Company
	Roles       []magento.Role
	Hierarchy   *magento.HierarchyNode
	TeamDetails map[int64]*magento.Team
}

// Extract flattens the hierarchy tree and produces the normalized set.
// The user-role edge is structurally absent on this path; the rolegap
// package fills it in afterwards under a configured strategy.
func (r *REST) Extract(in RESTInput) (*entity.Set, error) {
	if in.CurrentUser == nil {
		return nil, fmt.Errorf("rest extraction: current user response is required")
	}
	if in.Company == nil || in.Company.ID == 0 {
		return nil, fmt.Errorf("rest extraction: %w", entity.ErrNoCompany)
	}

	companyID := strconv.FormatInt(in.Company.ID, 10)
	superUserID := in.Company.SuperUserID

	set := &entity.Set{
		Company: entity.Company{
			ID:        companyID,
			Name:      in.Company.CompanyName,
			LegalName: in.Company.LegalName,
			Email:     in.Company.CompanyEmail,
		},
	}

	var flat []magento.HierarchyNode
	flatten(in.Hierarchy, &flat)

	// Users from customer nodes. Only the caller's node gets a profile.
	// A customer whose structure parent is a team belongs to that team.
	teamOf := teamParents(flat)
	for _, node := range flat {
		if node.EntityType != "customer" || node.EntityID == 0 {
			continue
		}
		var u entity.User
		if node.EntityID == in.CurrentUser.ID {
			u = r.userFromProfile(in.CurrentUser, companyID, superUserID)
		} else {
			u = r.placeholderUser(node.EntityID, companyID, superUserID)
		}
		u.TeamID = teamOf[node.EntityID]
		set.Users = append(set.Users, u)
	}

	// The caller may be absent from the hierarchy response entirely.
	if _, found := set.UserByEmail(in.CurrentUser.Email); !found && in.CurrentUser.Email != "" {
		set.Users = append(set.Users, r.userFromProfile(in.CurrentUser, companyID, superUserID))
	}

	// Teams need one detail call each; a missing detail degrades to a
	// generated name and keeps the run going.
	teamsSeen := make(map[int64]struct{})
	for _, node := range flat {
		if node.EntityType != "team" || node.EntityID == 0 {
			continue
		}
		if _, dup := teamsSeen[node.EntityID]; dup {
			continue
		}
		teamsSeen[node.EntityID] = struct{}{}

		team := entity.Team{
			ID:        strconv.FormatInt(node.EntityID, 10),
			CompanyID: companyID,
		}
		if detail := in.TeamDetails[node.EntityID]; detail != nil && detail.Name != "" {
			team.Name = detail.Name
			team.Description = detail.Description
		} else {
			team.Name = fmt.Sprintf("Team %d", node.EntityID)
			warning := fmt.Sprintf("team %d detail unavailable, using fallback name", node.EntityID)
			set.Warnings = append(set.Warnings, warning)
			r.logger.Warn("team detail unavailable, using fallback name", "team_id", node.EntityID)
		}
		set.Teams = append(set.Teams, team)
	}

	// Roles come fully formed from REST, including allow/deny trees.
	for _, role := range in.Roles {
		set.Roles = append(set.Roles, entity.Role{
			ID:          strconv.FormatInt(role.ID, 10),
			Name:        role.RoleName,
			CompanyID:   companyID,
			Permissions: convertPermissions(role.Permissions),
		})
	}

	// Admin email: the super_user_id points at the company admin.
	if superUserID != 0 {
		adminID := strconv.FormatInt(superUserID, 10)
		for _, u := range set.Users {
			if u.CustomerID == adminID {
				set.Company.AdminEmail = u.Email
				break
			}
		}
	}

	set.Hierarchy = r.hierarchyEdges(flat, in.CurrentUser)

	sortUsersByCustomerID(set.Users)
	sortTeams(set.Teams)
	sortRoles(set.Roles)

	r.logger.Debug("rest extraction complete",
		"users", len(set.Users), "teams", len(set.Teams), "roles", len(set.Roles),
		"placeholders", set.PlaceholderCount())

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *REST) userFromProfile(c *magento.Customer, companyID string, superUserID int64) entity.User {
	attrs := c.ExtensionAttributes.CompanyAttributes
	active := true
	if attrs.Status != nil {
		active = *attrs.Status == 1
	}
	return entity.User{
		Email:        c.Email,
		FirstName:    c.Firstname,
		LastName:     c.Lastname,
		JobTitle:     attrs.JobTitle,
		Telephone:    attrs.Telephone,
		Active:       active,
		CompanyAdmin: superUserID != 0 && c.ID == superUserID,
		CompanyID:    companyID,
		CustomerID:   strconv.FormatInt(c.ID, 10),
	}
}

func (r *REST) placeholderUser(entityID int64, companyID string, superUserID int64) entity.User {
	id := strconv.FormatInt(entityID, 10)
	return entity.User{
		Email:        entity.SyntheticEmail(id),
		Active:       true, // unknown, assume active
		CompanyAdmin: superUserID != 0 && entityID == superUserID,
		CompanyID:    companyID,
		CustomerID:   id,
		Placeholder:  true,
	}
}

// hierarchyEdges maps structure parent pointers to entity-level edges.
// Customer nodes are referenced by the email they resolved to, synthetic
// or real.
func (r *REST) hierarchyEdges(flat []magento.HierarchyNode, current *magento.Customer) []entity.HierarchyEdge {
	byStructureID := make(map[int64]magento.HierarchyNode, len(flat))
	for _, node := range flat {
		if node.StructureID != 0 {
			byStructureID[node.StructureID] = node
		}
	}

	ref := func(node magento.HierarchyNode) (entity.NodeRef, bool) {
		switch node.EntityType {
		case "customer":
			email := entity.SyntheticEmail(strconv.FormatInt(node.EntityID, 10))
			if node.EntityID == current.ID {
				email = current.Email
			}
			return entity.NodeRef{Kind: entity.KindUser, UserEmail: email}, true
		case "team":
			return entity.NodeRef{Kind: entity.KindTeam, TeamID: strconv.FormatInt(node.EntityID, 10)}, true
		}
		return entity.NodeRef{}, false
	}

	var edges []entity.HierarchyEdge
	for _, node := range flat {
		if node.StructureParentID == 0 {
			continue
		}
		parent, ok := byStructureID[node.StructureParentID]
		if !ok {
			continue
		}
		childRef, okChild := ref(node)
		parentRef, okParent := ref(parent)
		if !okChild || !okParent {
			continue
		}
		edges = append(edges, entity.HierarchyEdge{Child: childRef, Parent: parentRef})
	}
	return edges
}

// teamParents maps customer entity IDs to the team sitting directly
// above them in the structure tree. Customers parented by another
// customer, or by nothing, are absent from the map.
func teamParents(flat []magento.HierarchyNode) map[int64]string {
	byStructureID := make(map[int64]magento.HierarchyNode, len(flat))
	for _, node := range flat {
		if node.StructureID != 0 {
			byStructureID[node.StructureID] = node
		}
	}
	out := make(map[int64]string)
	for _, node := range flat {
		if node.EntityType != "customer" || node.StructureParentID == 0 {
			continue
		}
		if parent, ok := byStructureID[node.StructureParentID]; ok && parent.EntityType == "team" {
			out[node.EntityID] = strconv.FormatInt(parent.EntityID, 10)
		}
	}
	return out
}

func flatten(node *magento.HierarchyNode, out *[]magento.HierarchyNode) {
	if node == nil {
		return
	}
	copied := *node
	copied.Children = nil
	*out = append(*out, copied)
	for i := range node.Children {
		flatten(&node.Children[i], out)
	}
}

func convertPermissions(perms []magento.RolePermission) []entity.RolePermission {
	if len(perms) == 0 {
		return nil
	}
	out := make([]entity.RolePermission, len(perms))
	for i, p := range perms {
		out[i] = entity.RolePermission{ResourceID: p.ResourceID, Permission: p.Permission}
	}
	return out
}

func sortUsersByCustomerID(users []entity.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return numericLess(users[i].CustomerID, users[j].CustomerID)
	})
}
