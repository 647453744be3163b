package rolegap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
)

func testRoles() []entity.Role {
	return []entity.Role{
		{ID: "6", Name: "Company Administrator", CompanyID: "2"},
		{ID: "7", Name: "Default User", CompanyID: "2"},
		{ID: "8", Name: "Purchaser", CompanyID: "2"},
	}
}

func testUsers() []entity.User {
	return []entity.User{
		{Email: "admin@acme.test", CompanyAdmin: true, CompanyID: "2"},
		{Email: "buyer@acme.test", CompanyID: "2"},
		{Email: "viewer@acme.test", CompanyID: "2"},
	}
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"default_role", "csv_supplement", "all_roles", "skip"} {
		s, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, Strategy(name), s)
	}

	_, err := ParseStrategy("guess")
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = New(Strategy("guess"), "", hclog.NewNullLogger())
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestDefaultRoleStrategy(t *testing.T) {
	r, err := New(StrategyDefaultRole, "", hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve(testUsers(), testRoles())
	require.Len(t, users, 3)

	assert.Equal(t, "6", users[0].RoleID, "admin gets the role containing 'admin'")
	assert.Equal(t, "Company Administrator", users[0].RoleName)
	assert.Equal(t, "7", users[1].RoleID, "non-admin gets Default User")
	assert.Equal(t, "7", users[2].RoleID)
	assert.Equal(t, 3, result.Assigned)
}

func TestDefaultRoleFallsBackToFirstRole(t *testing.T) {
	roles := []entity.Role{
		{ID: "10", Name: "Buyer", CompanyID: "2"},
		{ID: "11", Name: "Approver", CompanyID: "2"},
	}
	r, err := New(StrategyDefaultRole, "", hclog.NewNullLogger())
	require.NoError(t, err)

	users, _ := r.Resolve([]entity.User{{Email: "buyer@acme.test"}}, roles)
	assert.Equal(t, "10", users[0].RoleID, "no Default User role, first role wins")
}

func TestDefaultRoleAdminWithoutAdminRole(t *testing.T) {
	roles := []entity.Role{{ID: "10", Name: "Buyer", CompanyID: "2"}}
	r, err := New(StrategyDefaultRole, "", hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve([]entity.User{{Email: "boss@acme.test", CompanyAdmin: true}}, roles)
	assert.Empty(t, users[0].RoleID, "admin is left unassigned rather than guessed")
	assert.Equal(t, 0, result.Assigned)
}

func TestDefaultRolePreservesExistingAssignments(t *testing.T) {
	users := []entity.User{{Email: "buyer@acme.test", RoleID: "8", RoleName: "Purchaser"}}
	r, err := New(StrategyDefaultRole, "", hclog.NewNullLogger())
	require.NoError(t, err)

	out, result := r.Resolve(users, testRoles())
	assert.Equal(t, "8", out[0].RoleID)
	assert.Equal(t, 0, result.Assigned)
}

func TestCSVSupplementStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.csv")
	csv := "email,role_name\nBUYER@acme.test,purchaser\nghost@acme.test,Default User\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	r, err := New(StrategyCSVSupplement, path, hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve(testUsers(), testRoles())

	assert.Equal(t, "8", users[1].RoleID, "csv match wins, case-insensitive on both sides")
	assert.Equal(t, "Purchaser", users[1].RoleName)
	assert.Equal(t, 1, result.CSVMatched)
	assert.Equal(t, "7", users[2].RoleID, "unmatched user falls back to default_role")
	assert.Equal(t, "6", users[0].RoleID)
}

func TestCSVSupplementUnknownRoleWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.csv")
	require.NoError(t, os.WriteFile(path, []byte("email,role_name\nbuyer@acme.test,Nonexistent\n"), 0o600))

	r, err := New(StrategyCSVSupplement, path, hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve(testUsers(), testRoles())
	assert.Equal(t, "7", users[1].RoleID, "broken mapping row falls through to default_role")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Nonexistent")
}

func TestCSVSupplementMissingFileFallsBack(t *testing.T) {
	r, err := New(StrategyCSVSupplement, "/nonexistent/roles.csv", hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve(testUsers(), testRoles())
	assert.Equal(t, "7", users[1].RoleID)
	assert.Equal(t, "6", users[0].RoleID)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "falling back to default_role")
}

func TestAllRolesStrategy(t *testing.T) {
	r, err := New(StrategyAllRoles, "", hclog.NewNullLogger())
	require.NoError(t, err)

	users, result := r.Resolve(testUsers(), testRoles())
	for _, u := range users {
		assert.Empty(t, u.RoleID)
	}
	assert.Equal(t, 0, result.Assigned)
}

func TestSkipStrategyClearsAssignments(t *testing.T) {
	users := []entity.User{{Email: "buyer@acme.test", RoleID: "8", RoleName: "Purchaser"}}
	r, err := New(StrategySkip, "", hclog.NewNullLogger())
	require.NoError(t, err)

	out, _ := r.Resolve(users, testRoles())
	assert.Empty(t, out[0].RoleID)
	assert.Empty(t, out[0].RoleName)
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	users := testUsers()
	r, err := New(StrategyDefaultRole, "", hclog.NewNullLogger())
	require.NoError(t, err)

	_, _ = r.Resolve(users, testRoles())
	assert.Empty(t, users[1].RoleID, "input slice stays untouched")
}

func TestLoadCSVMappingRejectsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("user,role\na@b.c,Buyer\n"), 0o600))

	_, err := LoadCSVMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email and role_name")
}
