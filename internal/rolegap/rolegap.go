// Package rolegap approximates the user→role edges the REST API cannot
// supply. The hierarchy and customer endpoints never expose which role a
// customer holds, so every strategy here is a deliberate, clearly labeled
// approximation; the chosen strategy is recorded in run metadata and a
// resolver never asserts an assignment it cannot justify under it.
package rolegap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
)

// Strategy selects one of the four gap-filling behaviors. The set is
// closed: strategies are chosen once at pipeline construction and never
// branched on by string deeper in.
type Strategy string

const (
	// StrategyDefaultRole assigns every non-admin user the role named
	// "Default User" (first role as fallback); the company admin gets the
	// first role whose name contains "admin".
	StrategyDefaultRole Strategy = "default_role"

	// StrategyCSVSupplement consults an email→role-name mapping file and
	// falls back to StrategyDefaultRole for unmatched users, or for the
	// whole run when the mapping cannot be read.
	StrategyCSVSupplement Strategy = "csv_supplement"

	// StrategyAllRoles assigns nothing; roles still exist as unconnected
	// nodes with their permissions.
	StrategyAllRoles Strategy = "all_roles"

	// StrategySkip produces no user-role relationship at all and clears
	// any assignment already present.
	StrategySkip Strategy = "skip"
)

// ErrUnknownStrategy reports a strategy name outside the closed set.
var ErrUnknownStrategy = errors.New("unknown role-gap strategy")

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyDefaultRole, StrategyCSVSupplement, StrategyAllRoles, StrategySkip:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("%w: %q (valid: default_role, csv_supplement, all_roles, skip)", ErrUnknownStrategy, name)
}

// Resolver applies one strategy to the extracted users.
type Resolver struct {
	strategy Strategy
	csvPath  string
	logger   hclog.Logger
}

// New builds a resolver. csvPath is only consulted under
// StrategyCSVSupplement.
func New(strategy Strategy, csvPath string, logger hclog.Logger) (*Resolver, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Resolver{strategy: strategy, csvPath: csvPath, logger: logger.Named("rolegap")}, nil
}

// Strategy returns the configured strategy for run metadata.
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Result reports what the resolver did, for the run report.
type Result struct {
	Strategy   Strategy
	Assigned   int
	CSVMatched int
	Warnings   []string
}

// Resolve returns a copy of users annotated with role IDs where the
// strategy justifies one. The input slice is not modified.
func (r *Resolver) Resolve(users []entity.User, roles []entity.Role) ([]entity.User, Result) {
	out := make([]entity.User, len(users))
	copy(out, users)
	res := Result{Strategy: r.strategy}

	switch r.strategy {
	case StrategyDefaultRole:
		r.applyDefaultRole(out, roles, &res)
	case StrategyCSVSupplement:
		r.applyCSVSupplement(out, roles, &res)
	case StrategyAllRoles:
		// Roles exist as unconnected nodes; nothing to assign.
	case StrategySkip:
		for i := range out {
			out[i].RoleID = ""
			out[i].RoleName = ""
		}
	}
	return out, res
}

func (r *Resolver) applyDefaultRole(users []entity.User, roles []entity.Role, res *Result) {
	var defaultRole, adminRole *entity.Role
	for i := range roles {
		if strings.EqualFold(roles[i].Name, "Default User") {
			defaultRole = &roles[i]
			break
		}
	}
	if defaultRole == nil && len(roles) > 0 {
		defaultRole = &roles[0]
	}
	for i := range roles {
		if strings.Contains(strings.ToLower(roles[i].Name), "admin") {
			adminRole = &roles[i]
			break
		}
	}

	for i := range users {
		if users[i].RoleID != "" {
			continue
		}
		if users[i].CompanyAdmin {
			if adminRole != nil {
				users[i].RoleID = adminRole.ID
				users[i].RoleName = adminRole.Name
				res.Assigned++
			}
			continue
		}
		if defaultRole != nil {
			users[i].RoleID = defaultRole.ID
			users[i].RoleName = defaultRole.Name
			res.Assigned++
		}
	}
}

func (r *Resolver) applyCSVSupplement(users []entity.User, roles []entity.Role, res *Result) {
	mapping, err := LoadCSVMapping(r.csvPath)
	if err != nil {
		// A broken mapping source is not fatal: log and fall back to the
		// default-role behavior for the whole run.
		warning := fmt.Sprintf("role mapping unavailable (%v), falling back to default_role", err)
		r.logger.Warn("role mapping unavailable, falling back to default_role", "path", r.csvPath, "error", err)
		res.Warnings = append(res.Warnings, warning)
		r.applyDefaultRole(users, roles, res)
		return
	}

	byName := make(map[string]entity.Role, len(roles))
	for _, role := range roles {
		byName[strings.ToLower(role.Name)] = role
	}

	for i := range users {
		if users[i].RoleID != "" {
			continue
		}
		roleName, ok := mapping[strings.ToLower(users[i].Email)]
		if !ok {
			continue
		}
		role, found := byName[strings.ToLower(roleName)]
		if !found {
			warning := fmt.Sprintf("mapped role %q for %s does not exist in the company", roleName, users[i].Email)
			r.logger.Warn("mapped role does not exist", "role", roleName, "user", users[i].Email)
			res.Warnings = append(res.Warnings, warning)
			continue
		}
		users[i].RoleID = role.ID
		users[i].RoleName = role.Name
		res.Assigned++
		res.CSVMatched++
	}

	// Users the mapping did not cover fall back to default_role behavior.
	r.applyDefaultRole(users, roles, res)
}

// LoadCSVMapping reads an email,role_name CSV (header row required) into a
// lowercased email → role name map.
func LoadCSVMapping(path string) (map[string]string, error) {
	if path == "" {
		return nil, fmt.Errorf("no mapping file configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open mapping file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read mapping header: %w", err)
	}
	emailCol, roleCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF"))) {
		case "email":
			emailCol = i
		case "role_name":
			roleCol = i
		}
	}
	if emailCol < 0 || roleCol < 0 {
		return nil, fmt.Errorf("mapping file must have email and role_name columns")
	}

	mapping := make(map[string]string)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read mapping row: %w", err)
		}
		if emailCol >= len(record) || roleCol >= len(record) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(record[emailCol]))
		roleName := strings.TrimSpace(record[roleCol])
		if email != "" && roleName != "" {
			mapping[email] = roleName
		}
	}
	return mapping, nil
}
