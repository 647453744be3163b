// Package catalog holds the static Magento B2B ACL permission catalog.
//
// The 34 resources here are fixed configuration reproduced from the Adobe
// Commerce B2B role documentation; they are not derived from any API
// response. Both the REST and GraphQL APIs return these resource IDs in
// per-role permission trees.
package catalog

// Category groups related ACL resources.
type Category string

const (
	CategoryBase           Category = "base"
	CategorySales          Category = "sales"
	CategoryQuotes         Category = "quotes"
	CategoryPurchaseOrders Category = "purchase_orders"
	CategoryCompany        Category = "company"
	CategoryUsers          Category = "users"
	CategoryCredit         Category = "credit"
)

// Access is the coarse permission type a category maps to in the output
// graph.
type Access string

const (
	AccessRead  Access = "read"
	AccessWrite Access = "write"
)

// Permission is one ACL check point: a namespaced resource ID plus its
// display name and category.
type Permission struct {
	ResourceID  string
	DisplayName string
	Category    Category
}

// permissions is the complete 34-entry catalog, in documentation order.
//
// The three approval-rule resources use the Magento_PurchaseOrderRule
// namespace, not Magento_PurchaseOrder. That split matches the upstream
// documentation; normalizing them to a uniform prefix is a correctness
// bug, not a cleanup.
var permissions = []Permission{
	// Base
	{"Magento_Company::index", "All Access", CategoryBase},

	// Sales
	{"Magento_Sales::all", "Sales", CategorySales},
	{"Magento_Sales::place_order", "Allow Checkout", CategorySales},
	{"Magento_Sales::payment_account", "Pay On Account", CategorySales},
	{"Magento_Sales::view_orders", "View Orders", CategorySales},
	{"Magento_Sales::view_orders_sub", "View Subordinate Orders", CategorySales},

	// Quotes
	{"Magento_NegotiableQuote::all", "Quotes", CategoryQuotes},
	{"Magento_NegotiableQuote::view_quotes", "View Quotes", CategoryQuotes},
	{"Magento_NegotiableQuote::manage", "Manage Quotes", CategoryQuotes},
	{"Magento_NegotiableQuote::checkout", "Checkout Quote", CategoryQuotes},
	{"Magento_NegotiableQuote::view_quotes_sub", "View Subordinate Quotes", CategoryQuotes},

	// Purchase orders
	{"Magento_PurchaseOrder::all", "Order Approvals", CategoryPurchaseOrders},
	{"Magento_PurchaseOrder::view_purchase_orders", "View My POs", CategoryPurchaseOrders},
	{"Magento_PurchaseOrder::view_purchase_orders_for_subordinates", "View Subordinate POs", CategoryPurchaseOrders},
	{"Magento_PurchaseOrder::view_purchase_orders_for_company", "View Company POs", CategoryPurchaseOrders},
	{"Magento_PurchaseOrder::autoapprove_purchase_order", "Auto-approve POs", CategoryPurchaseOrders},
	{"Magento_PurchaseOrderRule::super_approve_purchase_order", "Super Approve", CategoryPurchaseOrders},
	{"Magento_PurchaseOrderRule::view_approval_rules", "View Approval Rules", CategoryPurchaseOrders},
	{"Magento_PurchaseOrderRule::manage_approval_rules", "Manage Approval Rules", CategoryPurchaseOrders},

	// Company profile
	{"Magento_Company::view", "Company Profile", CategoryCompany},
	{"Magento_Company::view_account", "View Account", CategoryCompany},
	{"Magento_Company::edit_account", "Edit Account", CategoryCompany},
	{"Magento_Company::view_address", "View Address", CategoryCompany},
	{"Magento_Company::edit_address", "Edit Address", CategoryCompany},
	{"Magento_Company::contacts", "View Contacts", CategoryCompany},
	{"Magento_Company::payment_information", "View Payment Info", CategoryCompany},
	{"Magento_Company::shipping_information", "View Shipping Info", CategoryCompany},

	// User management
	{"Magento_Company::user_management", "User Management", CategoryUsers},
	{"Magento_Company::roles_view", "View Roles", CategoryUsers},
	{"Magento_Company::roles_edit", "Manage Roles", CategoryUsers},
	{"Magento_Company::users_view", "View Users", CategoryUsers},
	{"Magento_Company::users_edit", "Manage Users", CategoryUsers},

	// Credit
	{"Magento_Company::credit", "Company Credit", CategoryCredit},
	{"Magento_Company::credit_history", "Credit History", CategoryCredit},
}

var byResourceID = func() map[string]Permission {
	m := make(map[string]Permission, len(permissions))
	for _, p := range permissions {
		m[p.ResourceID] = p
	}
	return m
}()

var categoryAccess = map[Category]Access{
	CategoryBase:           AccessRead,
	CategorySales:          AccessWrite,
	CategoryQuotes:         AccessWrite,
	CategoryPurchaseOrders: AccessWrite,
	CategoryCompany:        AccessRead,
	CategoryUsers:          AccessWrite,
	CategoryCredit:         AccessRead,
}

// All returns the full catalog in stable order.
func All() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

// Lookup returns the catalog entry for a resource ID.
func Lookup(resourceID string) (Permission, bool) {
	p, ok := byResourceID[resourceID]
	return p, ok
}

// Known reports whether a resource ID is part of the catalog. Resource IDs
// outside the catalog are recorded as unclassified by the assembler, never
// raised as errors.
func Known(resourceID string) bool {
	_, ok := byResourceID[resourceID]
	return ok
}

// AccessFor maps a category to its output permission type. Unknown
// categories default to read.
func AccessFor(c Category) Access {
	if a, ok := categoryAccess[c]; ok {
		return a
	}
	return AccessRead
}
