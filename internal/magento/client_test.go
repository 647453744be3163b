package magento

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens satisfies TokenSource with a fixed token.
type staticTokens struct{ token string }

func (s staticTokens) Token(context.Context) (string, error) { return s.token, nil }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, staticTokens{token: "test-token"}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("", staticTokens{}, nil)
	assert.Error(t, err)

	_, err = NewClient("https://store.example.com", nil, nil)
	assert.Error(t, err)

	c, err := NewClient("https://store.example.com/", staticTokens{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com", c.StoreURL())
}

func TestCurrentUserAttachesBearerToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/V1/customers/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{
			"id": 7,
			"email": "admin@acme.example",
			"firstname": "Ada",
			"lastname": "Admin",
			"extension_attributes": {
				"company_attributes": {"company_id": 2, "status": 1, "job_title": "CEO"}
			}
		}`)
	}))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "admin@acme.example", user.Email)
	assert.Equal(t, int64(2), user.ExtensionAttributes.CompanyAttributes.CompanyID)
	require.NotNil(t, user.ExtensionAttributes.CompanyAttributes.Status)
	assert.Equal(t, 1, *user.ExtensionAttributes.CompanyAttributes.Status)
}

func TestCompanyRolesPaginates(t *testing.T) {
	pages := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/V1/company/role", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "company_id", q.Get("searchCriteria[filter_groups][0][filters][0][field]"))
		assert.Equal(t, "2", q.Get("searchCriteria[filter_groups][0][filters][0][value]"))

		pages++
		page := q.Get("searchCriteria[currentPage]")
		var items []Role
		if page == "1" {
			// Full page forces a second fetch.
			for i := 0; i < rolePageSize; i++ {
				items = append(items, Role{ID: int64(i + 1), RoleName: fmt.Sprintf("Role %d", i+1), CompanyID: 2})
			}
		} else {
			items = []Role{{ID: 99, RoleName: "Last", CompanyID: 2}}
		}
		_ = json.NewEncoder(w).Encode(roleSearchResults{Items: items, TotalCount: rolePageSize + 1})
	}))

	roles, err := client.CompanyRoles(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Len(t, roles, rolePageSize+1)
	assert.Equal(t, "Last", roles[rolePageSize].RoleName)
}

func TestCompanyRolesDecodesPermissions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [{
			"id": 6,
			"role_name": "Junior Buyer",
			"company_id": 2,
			"permissions": [
				{"resource_id": "Magento_Sales::place_order", "permission": "allow"},
				{"resource_id": "Magento_Company::roles_edit", "permission": "deny"}
			]
		}], "total_count": 1}`)
	}))

	roles, err := client.CompanyRoles(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Len(t, roles[0].Permissions, 2)
	assert.Equal(t, "Magento_Sales::place_order", roles[0].Permissions[0].ResourceID)
	assert.Equal(t, "allow", roles[0].Permissions[0].Permission)
	assert.Equal(t, "deny", roles[0].Permissions[1].Permission)
}

func TestAPIErrorIncludesStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "no such team"}`)
	}))

	_, err := client.GetTeam(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "no such team")
}

func TestExecuteGraphQLSurfacesErrors(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		fmt.Fprint(w, `{"errors": [{"message": "Customer is not a company user"}]}`)
	}))

	_, err := client.FetchExtraction(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Customer is not a company user")
}

func TestFetchExtractionDecodesStructure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "structure")
		fmt.Fprint(w, `{"data": {
			"customer": {"email": "admin@acme.example", "firstname": "Ada", "lastname": "Admin"},
			"company": {
				"id": "Mg==",
				"name": "Acme",
				"company_admin": {"email": "admin@acme.example"},
				"structure": {"items": [
					{"id": "1", "parent_id": "0", "entity": {
						"__typename": "Customer",
						"email": "admin@acme.example",
						"status": "ACTIVE",
						"role": {"id": "Ng==", "name": "Admin"}
					}}
				]}
			}
		}}`)
	}))

	data, err := client.FetchExtraction(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data.Company)
	assert.Equal(t, "Mg==", data.Company.ID)
	require.Len(t, data.Company.Structure.Items, 1)
	entity := data.Company.Structure.Items[0].Entity
	assert.Equal(t, TypenameCustomer, entity.Typename)
	require.NotNil(t, entity.Role)
	assert.Equal(t, "Ng==", entity.Role.ID)
}

func TestPasswordTokenSourceCachesToken(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/rest/V1/integration/customer/token", r.URL.Path)
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@acme.example", creds["username"])
		fmt.Fprint(w, `"jwt-token-value"`)
	}))
	defer srv.Close()

	src, err := NewPasswordTokenSource(srv.URL, "admin@acme.example", "secret")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		token, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "jwt-token-value", token)
	}
	assert.Equal(t, 1, calls, "token should be fetched once and cached")
}

func TestPasswordTokenSourceAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "invalid credentials"}`)
	}))
	defer srv.Close()

	src, err := NewPasswordTokenSource(srv.URL, "admin@acme.example", "wrong")
	require.NoError(t, err)
	_, err = src.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestClientCredentialsTokenSourceRefreshesNearExpiry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "cid", r.Form.Get("client_id"))
		fmt.Fprintf(w, `{"access_token": "token-%d", "expires_in": 3600}`, calls)
	}))
	defer srv.Close()

	src, err := NewClientCredentialsTokenSource(srv.URL, "cid", "csecret", "")
	require.NoError(t, err)

	current := time.Now()
	src.now = func() time.Time { return current }

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Well before expiry: cached.
	current = current.Add(30 * time.Minute)
	token, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Inside the expiry skew: refreshed.
	current = current.Add(30 * time.Minute)
	token, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, calls)
}
