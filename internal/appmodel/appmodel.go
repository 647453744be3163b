// Package appmodel holds the vendor-neutral authorization graph built from
// extracted commerce entities. The push layer consumes this model; nothing
// here knows about any particular graph backend.
package appmodel

// GroupKind distinguishes the two group subtypes in the graph.
type GroupKind string

const (
	GroupCompany GroupKind = "company"
	GroupTeam    GroupKind = "team"
)

// Group is a company or team node.
type Group struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Kind GroupKind         `json:"kind"`
	Meta map[string]string `json:"meta,omitempty"`
}

// User is a person node keyed by email. Identity repeats the email as an
// explicit claim so the consumer can correlate the node against external
// identity providers. Placeholder users stand in for customers whose
// profile could not be fetched.
type User struct {
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Identity     string `json:"identity"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	JobTitle     string `json:"job_title,omitempty"`
	Telephone    string `json:"telephone,omitempty"`
	Active       bool   `json:"active"`
	CompanyAdmin bool   `json:"company_admin,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	Placeholder  bool   `json:"placeholder,omitempty"`
}

// Role is a named permission bundle scoped to a company.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Permission is one ACL resource from the fixed catalog, with its
// coarse-grained access level.
type Permission struct {
	ResourceID  string `json:"resource_id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Access      string `json:"access"`
}

// Edge types. Each collection below corresponds to one relationship kind
// the push layer materializes.

// Membership links a user to a group.
type Membership struct {
	UserEmail string `json:"user_email"`
	GroupID   string `json:"group_id"`
}

// RoleAssignment links a user to a role.
type RoleAssignment struct {
	UserEmail string `json:"user_email"`
	RoleID    string `json:"role_id"`
}

// RoleGrant links a role to a permission it allows.
type RoleGrant struct {
	RoleID     string `json:"role_id"`
	ResourceID string `json:"resource_id"`
}

// GroupNesting places a team group under its company group.
type GroupNesting struct {
	ChildID  string `json:"child_id"`
	ParentID string `json:"parent_id"`
}

// ReportsTo records a manager edge between two known users.
type ReportsTo struct {
	UserEmail    string `json:"user_email"`
	ManagerEmail string `json:"manager_email"`
}

// Application is the complete graph for one company extraction.
type Application struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Users       []User       `json:"users"`
	Groups      []Group      `json:"groups"`
	Roles       []Role       `json:"roles"`
	Permissions []Permission `json:"permissions"`

	CompanyMemberships []Membership     `json:"company_memberships"`
	TeamMemberships    []Membership     `json:"team_memberships"`
	RoleAssignments    []RoleAssignment `json:"role_assignments"`
	RoleGrants         []RoleGrant      `json:"role_grants"`
	TeamNestings       []GroupNesting   `json:"team_nestings"`
	ReportingEdges     []ReportsTo      `json:"reporting_edges"`

	// Unclassified lists permission resource IDs that appeared in role
	// data but are not in the catalog. They are reported, never pushed.
	Unclassified []string `json:"unclassified,omitempty"`

	// Warnings carries non-fatal degradations observed while building.
	Warnings []string `json:"warnings,omitempty"`
}

// Counts summarizes node and edge totals for the run report.
type Counts struct {
	Users           int `json:"users"`
	PlaceholderUser int `json:"placeholder_users"`
	Groups          int `json:"groups"`
	Roles           int `json:"roles"`
	Permissions     int `json:"permissions"`
	Relationships   int `json:"relationships"`
	Unclassified    int `json:"unclassified"`
}

// Counts computes totals across the graph.
func (a *Application) CountTotals() Counts {
	c := Counts{
		Users:        len(a.Users),
		Groups:       len(a.Groups),
		Roles:        len(a.Roles),
		Permissions:  len(a.Permissions),
		Unclassified: len(a.Unclassified),
	}
	for _, u := range a.Users {
		if u.Placeholder {
			c.PlaceholderUser++
		}
	}
	c.Relationships = len(a.CompanyMemberships) + len(a.TeamMemberships) +
		len(a.RoleAssignments) + len(a.RoleGrants) +
		len(a.TeamNestings) + len(a.ReportingEdges)
	return c
}
