// Package extract normalizes raw source API responses into the entity set.
// The two extractors cover the two source shapes: a single GraphQL
// structure tree, and the fragmented multi-call REST responses.
package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
)

// GraphQL extracts the normalized entity set from the single extraction
// query response. All opaque base64 IDs are decoded before use; roles are
// deduplicated by decoded ID as they appear across users.
type GraphQL struct {
	logger hclog.Logger
}

// NewGraphQL builds a GraphQL extractor.
func NewGraphQL(logger hclog.Logger) *GraphQL {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GraphQL{logger: logger.Named("extract")}
}

// Extract walks company.structure.items and produces users, teams, deduped
// roles and resolved hierarchy edges. A response without a company aborts
// with entity.ErrNoCompany.
func (g *GraphQL) Extract(data *magento.Extraction) (*entity.Set, error) {
	if data == nil || data.Company == nil {
		return nil, fmt.Errorf("graphql extraction: %w", entity.ErrNoCompany)
	}

	companyID := entity.DecodeID(data.Company.ID)
	adminEmail := data.Company.CompanyAdmin.Email

	set := &entity.Set{
		Company: entity.Company{
			ID:         companyID,
			Name:       data.Company.Name,
			LegalName:  data.Company.LegalName,
			Email:      data.Company.Email,
			AdminEmail: adminEmail,
		},
	}

	// structure_id -> resolved node, for hierarchy resolution after the walk.
	structureMap := make(map[string]entity.NodeRef)
	type rawLink struct{ child, parent string }
	var links []rawLink

	rolesSeen := make(map[string]struct{})

	for _, item := range data.Company.Structure.Items {
		switch item.Entity.Typename {
		case magento.TypenameCustomer:
			user := g.extractUser(item.Entity, companyID, adminEmail)
			set.Users = append(set.Users, user)
			structureMap[item.ID] = entity.NodeRef{Kind: entity.KindUser, UserEmail: user.Email}

			if item.Entity.Role != nil && item.Entity.Role.ID != "" {
				roleID := entity.DecodeID(item.Entity.Role.ID)
				if _, seen := rolesSeen[roleID]; !seen {
					rolesSeen[roleID] = struct{}{}
					set.Roles = append(set.Roles, entity.Role{
						ID:        roleID,
						Name:      item.Entity.Role.Name,
						CompanyID: companyID,
					})
				}
			}

		case magento.TypenameTeam:
			team := entity.Team{
				ID:          entity.DecodeID(item.Entity.ID),
				Name:        item.Entity.Name,
				Description: item.Entity.Description,
				CompanyID:   companyID,
			}
			set.Teams = append(set.Teams, team)
			structureMap[item.ID] = entity.NodeRef{Kind: entity.KindTeam, TeamID: team.ID}

		default:
			g.logger.Warn("skipping structure item with unknown typename", "typename", item.Entity.Typename, "structure_id", item.ID)
		}

		if item.ParentID != "" {
			links = append(links, rawLink{child: item.ID, parent: item.ParentID})
		}
	}

	// Resolve structure-ID links to entity-level edges; links whose
	// endpoints are not in the tree are dropped.
	for _, link := range links {
		child, okChild := structureMap[link.child]
		parent, okParent := structureMap[link.parent]
		if !okChild || !okParent {
			continue
		}
		set.Hierarchy = append(set.Hierarchy, entity.HierarchyEdge{Child: child, Parent: parent})
	}

	sortTeams(set.Teams)
	sortRoles(set.Roles)

	g.logger.Debug("graphql extraction complete",
		"users", len(set.Users), "teams", len(set.Teams), "roles", len(set.Roles))

	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (g *GraphQL) extractUser(e magento.StructureEntity, companyID, adminEmail string) entity.User {
	user := entity.User{
		Email:     e.Email,
		FirstName: e.Firstname,
		LastName:  e.Lastname,
		JobTitle:  e.JobTitle,
		Telephone: e.Telephone,
		CompanyID: companyID,
	}

	// Absent status means the API withheld it; assume active.
	user.Active = e.Status == "" || e.Status == "ACTIVE"
	user.CompanyAdmin = adminEmail != "" && strings.EqualFold(e.Email, adminEmail)

	if e.Team != nil && e.Team.ID != "" {
		user.TeamID = entity.DecodeID(e.Team.ID)
	}
	if e.Role != nil && e.Role.ID != "" {
		user.RoleID = entity.DecodeID(e.Role.ID)
		user.RoleName = e.Role.Name
	}
	return user
}

// sortTeams orders teams by numeric source ID so output is deterministic.
func sortTeams(teams []entity.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		return numericLess(teams[i].ID, teams[j].ID)
	})
}

func sortRoles(roles []entity.Role) {
	sort.SliceStable(roles, func(i, j int) bool {
		return numericLess(roles[i].ID, roles[j].ID)
	})
}

// numericLess compares two source IDs numerically when possible, falling
// back to string order for non-numeric IDs.
func numericLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
