// Package entity defines the normalized, source-agnostic entities produced
// by extraction. Both the GraphQL and REST extractors emit the same Set, so
// downstream stages never see the shape of the raw API responses.
package entity

import (
	"errors"
	"fmt"
)

// ErrNoCompany indicates the authenticated principal has no company
// association. There is no company-less fallback: a run cannot proceed.
var ErrNoCompany = errors.New("authenticated user is not associated with a company")

// Company is the single B2B company a run extracts. All IDs are decoded
// numeric strings, never the opaque GraphQL form.
type Company struct {
	ID         string
	Name       string
	LegalName  string
	Email      string
	AdminEmail string
}

// User is a company member. Email is the global identity key. Placeholder
// users carry a synthetic email and empty profile fields (REST path, users
// other than the authenticated caller).
type User struct {
	Email        string
	FirstName    string
	LastName     string
	JobTitle     string
	Telephone    string
	Active       bool
	CompanyAdmin bool
	CompanyID    string
	CustomerID   string // source customer ID when known
	TeamID       string // empty when the user belongs to no team
	RoleID       string // empty until extraction or gap resolution assigns one
	RoleName     string
	Placeholder  bool
}

// Team is a group nested under the company. Regardless of nesting depth in
// the source tree, the output graph always attaches teams directly to the
// company group.
type Team struct {
	ID          string
	Name        string
	Description string
	CompanyID   string
}

// Role is a named permission set scoped to a company. Role IDs are not
// globally unique, so (CompanyID, ID) is the uniqueness key.
type Role struct {
	ID          string
	Name        string
	CompanyID   string
	Permissions []RolePermission
}

// RolePermission is one allow/deny entry from the source ACL tree.
type RolePermission struct {
	ResourceID string `json:"resource_id"`
	Permission string `json:"permission"` // "allow" or "deny"
}

// Allowed reports whether this entry grants access. Anything other than an
// explicit allow produces no grant downstream.
func (p RolePermission) Allowed() bool {
	return p.Permission == "allow"
}

// NodeKind tags a hierarchy node as a user or a team.
type NodeKind string

const (
	KindUser NodeKind = "user"
	KindTeam NodeKind = "team"
)

// NodeRef points at one extracted entity inside a hierarchy edge. Exactly
// one of UserEmail or TeamID is set, depending on Kind.
type NodeRef struct {
	Kind      NodeKind
	UserEmail string
	TeamID    string
}

// HierarchyEdge is a resolved parent/child relation between two structure
// nodes. Edges whose endpoints could not be resolved to extracted entities
// are dropped during extraction.
type HierarchyEdge struct {
	Child  NodeRef
	Parent NodeRef
}

// Set is the full normalized entity set for one run: exactly one company,
// plus the users, teams, roles and hierarchy edges discovered under it.
type Set struct {
	Company   Company
	Users     []User
	Teams     []Team
	Roles     []Role
	Hierarchy []HierarchyEdge

	// Warnings records degraded-but-successful extraction outcomes, such
	// as team detail calls that fell back to a placeholder name.
	Warnings []string
}

// PlaceholderCount returns how many users carry a synthetic email.
func (s *Set) PlaceholderCount() int {
	n := 0
	for _, u := range s.Users {
		if u.Placeholder {
			n++
		}
	}
	return n
}

// UserByEmail looks up a user by its identity key.
func (s *Set) UserByEmail(email string) (User, bool) {
	for _, u := range s.Users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// Validate checks the invariants every extractor must uphold before the
// set is handed to gap resolution and assembly.
func (s *Set) Validate() error {
	if s.Company.ID == "" {
		return fmt.Errorf("entity set: %w", ErrNoCompany)
	}
	seen := make(map[string]struct{}, len(s.Users))
	for _, u := range s.Users {
		if u.Email == "" {
			return fmt.Errorf("entity set: user with empty email (customer ID %q)", u.CustomerID)
		}
		if _, dup := seen[u.Email]; dup {
			return fmt.Errorf("entity set: duplicate user email %q", u.Email)
		}
		seen[u.Email] = struct{}{}
	}
	rolesSeen := make(map[string]struct{}, len(s.Roles))
	for _, r := range s.Roles {
		key := r.CompanyID + ":" + r.ID
		if _, dup := rolesSeen[key]; dup {
			return fmt.Errorf("entity set: duplicate role (company %s, role %s)", r.CompanyID, r.ID)
		}
		rolesSeen[key] = struct{}{}
	}
	return nil
}
