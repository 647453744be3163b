package magento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// extractionQuery retrieves all B2B authorization data in one call: the
// authenticated customer's profile, the company record with its admin, and
// the flat structure.items list linking every Customer and CompanyTeam by
// parent_id.
//
// GraphQL returns role id and name per user but never the per-role ACL
// permission tree; the REST role supplement covers that.
const extractionQuery = `
query AuthzExtraction {
  customer {
    email
    firstname
    lastname
  }
  company {
    id
    name
    legal_name
    email
    company_admin {
      email
      firstname
      lastname
    }
    structure {
      items {
        id
        parent_id
        entity {
          __typename
          ... on Customer {
            email
            firstname
            lastname
            job_title
            telephone
            status
            role {
              id
              name
            }
            team {
              id
              name
            }
          }
          ... on CompanyTeam {
            id
            name
            description
          }
        }
      }
    }
  }
}
`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// ExecuteGraphQL posts a query to the store's /graphql endpoint and returns
// the decoded data portion. GraphQL-level errors are surfaced as one error
// joining every message.
func (c *Client) ExecuteGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphQLResponse
	if err := c.post(ctx, "/graphql", graphQLRequest{Query: query, Variables: variables}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		var result *multierror.Error
		for _, e := range resp.Errors {
			result = multierror.Append(result, errors.New(e.Message))
		}
		return fmt.Errorf("graphql errors: %w", result)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}

// FetchExtraction runs the single extraction query and returns the company
// structure tree along with the caller's profile.
func (c *Client) FetchExtraction(ctx context.Context) (*Extraction, error) {
	var data Extraction
	if err := c.ExecuteGraphQL(ctx, extractionQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("extraction query failed: %w", err)
	}
	return &data, nil
}
