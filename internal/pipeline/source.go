package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
	"github.com/commerce-iam/magento-fga-sync/internal/extract"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
)

// Source fetches and extracts one company's entity set. The two
// implementations correspond to the two transport strategies; the rest of
// the pipeline does not care which one ran.
type Source interface {
	Fetch(ctx context.Context) (*entity.Set, error)
}

// GraphQLSource extracts through the single GraphQL query. Role
// permission trees are not exposed over GraphQL, so unless disabled it
// supplements them with one REST roles call afterwards.
type GraphQLSource struct {
	client     *magento.Client
	extractor  *extract.GraphQL
	supplement bool
	logger     hclog.Logger
}

// NewGraphQLSource builds the GraphQL fetch strategy. supplement enables
// the follow-up REST call for role permissions.
func NewGraphQLSource(client *magento.Client, supplement bool, logger hclog.Logger) *GraphQLSource {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GraphQLSource{
		client:     client,
		extractor:  extract.NewGraphQL(logger),
		supplement: supplement,
		logger:     logger.Named("source"),
	}
}

func (s *GraphQLSource) Fetch(ctx context.Context) (*entity.Set, error) {
	data, err := s.client.FetchExtraction(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching company data: %w", err)
	}
	set, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}

	if s.supplement {
		companyID, err := strconv.ParseInt(set.Company.ID, 10, 64)
		if err != nil {
			// A non-numeric decoded company ID cannot address the REST
			// roles endpoint; permissions stay empty rather than failing
			// the run.
			s.logger.Warn("company id is not numeric, skipping role permission supplement", "id", set.Company.ID)
			set.Warnings = append(set.Warnings, "role permissions unavailable: non-numeric company id")
			return set, nil
		}
		roles, err := s.client.CompanyRoles(ctx, companyID)
		if err != nil {
			s.logger.Warn("role permission supplement failed", "error", err)
			set.Warnings = append(set.Warnings, fmt.Sprintf("role permissions unavailable: %v", err))
			return set, nil
		}
		merged := extract.MergeRoleSupplement(set, roles)
		s.logger.Debug("supplemented role permissions", "merged", merged)
	}
	return set, nil
}

// RESTSource extracts through the multi-call REST sequence: current user,
// company, roles, hierarchy, and one detail call per team.
type RESTSource struct {
	client    *magento.Client
	extractor *extract.REST
	logger    hclog.Logger
}

// NewRESTSource builds the REST fetch strategy.
func NewRESTSource(client *magento.Client, logger hclog.Logger) *RESTSource {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RESTSource{
		client:    client,
		extractor: extract.NewREST(logger),
		logger:    logger.Named("source"),
	}
}

func (s *RESTSource) Fetch(ctx context.Context) (*entity.Set, error) {
	current, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching current user: %w", err)
	}
	companyID := current.ExtensionAttributes.CompanyAttributes.CompanyID
	if companyID == 0 {
		return nil, entity.ErrNoCompany
	}

	company, err := s.client.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("fetching company %d: %w", companyID, err)
	}
	roles, err := s.client.CompanyRoles(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("fetching roles for company %d: %w", companyID, err)
	}
	hierarchy, err := s.client.Hierarchy(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("fetching hierarchy for company %d: %w", companyID, err)
	}

	// Team detail failures degrade to generated names downstream.
	details := map[int64]*magento.Team{}
	for _, teamID := range teamIDs(hierarchy) {
		team, err := s.client.GetTeam(ctx, teamID)
		if err != nil {
			s.logger.Warn("team detail fetch failed", "team", teamID, "error", err)
			continue
		}
		details[teamID] = team
	}

	return s.extractor.Extract(extract.RESTInput{
		CurrentUser: current,
		Company:     company,
		Roles:       roles,
		Hierarchy:   hierarchy,
		TeamDetails: details,
	})
}

func teamIDs(node *magento.HierarchyNode) []int64 {
	if node == nil {
		return nil
	}
	var ids []int64
	if node.EntityType == "team" {
		ids = append(ids, node.EntityID)
	}
	for i := range node.Children {
		ids = append(ids, teamIDs(&node.Children[i])...)
	}
	return ids
}
