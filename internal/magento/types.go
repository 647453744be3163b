package magento

// Wire types for the Adobe Commerce B2B REST and GraphQL APIs. These decode
// the raw responses only; normalization into domain entities happens in the
// extract package.

// Customer is the REST current-user profile (GET /rest/V1/customers/me).
type Customer struct {
	ID                  int64  `json:"id"`
	Email               string `json:"email"`
	Firstname           string `json:"firstname"`
	Lastname            string `json:"lastname"`
	ExtensionAttributes struct {
		CompanyAttributes CompanyAttributes `json:"company_attributes"`
	} `json:"extension_attributes"`
}

// CompanyAttributes is the B2B extension block on a customer record.
// Status is numeric on the REST path: 1 = active, 0 = inactive.
type CompanyAttributes struct {
	CompanyID int64  `json:"company_id"`
	Status    *int   `json:"status"`
	JobTitle  string `json:"job_title"`
	Telephone string `json:"telephone"`
}

// Company is the REST company record (GET /rest/V1/company/{id}).
type Company struct {
	ID           int64  `json:"id"`
	CompanyName  string `json:"company_name"`
	LegalName    string `json:"legal_name"`
	CompanyEmail string `json:"company_email"`
	SuperUserID  int64  `json:"super_user_id"`
}

// Role is one company role with its ACL permission tree
// (GET /rest/V1/company/role?searchCriteria...).
type Role struct {
	ID          int64            `json:"id"`
	RoleName    string           `json:"role_name"`
	CompanyID   int64            `json:"company_id"`
	Permissions []RolePermission `json:"permissions"`
}

// RolePermission is one explicit allow/deny entry in a role's ACL tree.
type RolePermission struct {
	ResourceID string `json:"resource_id"`
	Permission string `json:"permission"`
}

type roleSearchResults struct {
	Items      []Role `json:"items"`
	TotalCount int    `json:"total_count"`
}

// HierarchyNode is one node of the REST company hierarchy tree
// (GET /rest/V1/hierarchy/{companyId}). Nodes carry entity IDs only; full
// profiles are available for the authenticated caller alone.
type HierarchyNode struct {
	StructureID       int64           `json:"structure_id"`
	EntityID          int64           `json:"entity_id"`
	EntityType        string          `json:"entity_type"` // "customer" or "team"
	StructureParentID int64           `json:"structure_parent_id"`
	Children          []HierarchyNode `json:"children"`
}

// Team is the REST per-team detail record (GET /rest/V1/team/{id}).
type Team struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GraphQL response shapes for the single extraction query.

// Extraction is the data portion of the extraction query response.
// Company is nil when the authenticated customer belongs to no company.
type Extraction struct {
	Customer GraphQLCustomer `json:"customer"`
	Company  *GraphQLCompany `json:"company"`
}

// GraphQLCustomer carries the authenticated caller's own profile.
type GraphQLCustomer struct {
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// GraphQLCompany is the company object with its embedded structure tree.
// The ID is base64-encoded and must be decoded before use.
type GraphQLCompany struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	LegalName    string          `json:"legal_name"`
	Email        string          `json:"email"`
	CompanyAdmin GraphQLCustomer `json:"company_admin"`
	Structure    struct {
		Items []StructureItem `json:"items"`
	} `json:"structure"`
}

// StructureItem is one node in company.structure.items: a position in the
// company tree (structure ID + parent pointer) plus the entity at that
// position.
type StructureItem struct {
	ID       string          `json:"id"`
	ParentID string          `json:"parent_id"`
	Entity   StructureEntity `json:"entity"`
}

// StructureEntity is the union of Customer and CompanyTeam fields, tagged
// by __typename.
type StructureEntity struct {
	Typename string `json:"__typename"`

	// Customer fields
	Email     string          `json:"email"`
	Firstname string          `json:"firstname"`
	Lastname  string          `json:"lastname"`
	JobTitle  string          `json:"job_title"`
	Telephone string          `json:"telephone"`
	Status    string          `json:"status"` // "ACTIVE" or "INACTIVE"
	Role      *GraphQLRoleRef `json:"role"`
	Team      *GraphQLTeamRef `json:"team"`

	// CompanyTeam fields
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Typename values in structure items.
const (
	TypenameCustomer = "Customer"
	TypenameTeam     = "CompanyTeam"
)

// GraphQLRoleRef is the role sub-object embedded on a Customer node.
// GraphQL supplies id and name only, never the permission tree.
type GraphQLRoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GraphQLTeamRef is the team sub-object embedded on a Customer node.
type GraphQLTeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
