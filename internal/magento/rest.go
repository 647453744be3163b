package magento

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// rolePageSize bounds one searchCriteria page when listing company roles.
const rolePageSize = 50

// CurrentUser fetches the authenticated caller's profile, the only full
// customer profile the REST API exposes to a company user.
func (c *Client) CurrentUser(ctx context.Context) (*Customer, error) {
	var out Customer
	if err := c.get(ctx, "/rest/V1/customers/me", nil, &out); err != nil {
		return nil, fmt.Errorf("error fetching current user: %w", err)
	}
	return &out, nil
}

// GetCompany fetches one company record by ID.
func (c *Client) GetCompany(ctx context.Context, companyID int64) (*Company, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("company ID is required")
	}
	var out Company
	if err := c.get(ctx, fmt.Sprintf("/rest/V1/company/%d", companyID), nil, &out); err != nil {
		return nil, fmt.Errorf("error fetching company %d: %w", companyID, err)
	}
	return &out, nil
}

// CompanyRoles lists every role for a company, including the explicit
// allow/deny ACL permission tree per role. Pages through searchCriteria
// until the server runs out of items.
func (c *Client) CompanyRoles(ctx context.Context, companyID int64) ([]Role, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("company ID is required")
	}

	var roles []Role
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("searchCriteria[filter_groups][0][filters][0][field]", "company_id")
		query.Set("searchCriteria[filter_groups][0][filters][0][value]", strconv.FormatInt(companyID, 10))
		query.Set("searchCriteria[filter_groups][0][filters][0][condition_type]", "eq")
		query.Set("searchCriteria[pageSize]", strconv.Itoa(rolePageSize))
		query.Set("searchCriteria[currentPage]", strconv.Itoa(page))

		var out roleSearchResults
		if err := c.get(ctx, "/rest/V1/company/role", query, &out); err != nil {
			return nil, fmt.Errorf("error fetching roles for company %d: %w", companyID, err)
		}
		roles = append(roles, out.Items...)
		if len(out.Items) < rolePageSize {
			break
		}
	}

	c.logger.Debug("fetched company roles", "company_id", companyID, "count", len(roles))
	return roles, nil
}

// Hierarchy fetches the company's structure tree. Nodes are tagged
// customer or team and carry entity IDs only.
func (c *Client) Hierarchy(ctx context.Context, companyID int64) (*HierarchyNode, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("company ID is required")
	}
	var out HierarchyNode
	if err := c.get(ctx, fmt.Sprintf("/rest/V1/hierarchy/%d", companyID), nil, &out); err != nil {
		return nil, fmt.Errorf("error fetching hierarchy for company %d: %w", companyID, err)
	}
	return &out, nil
}

// GetTeam fetches one team's name and description. Callers treat a failure
// here as a degradation, not a fatal error.
func (c *Client) GetTeam(ctx context.Context, teamID int64) (*Team, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("team ID is required")
	}
	var out Team
	if err := c.get(ctx, fmt.Sprintf("/rest/V1/team/%d", teamID), nil, &out); err != nil {
		return nil, fmt.Errorf("error fetching team %d: %w", teamID, err)
	}
	return &out, nil
}
