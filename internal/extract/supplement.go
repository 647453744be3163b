package extract

import (
	"strconv"

	"github.com/commerce-iam/magento-fga-sync/internal/entity"
	"github.com/commerce-iam/magento-fga-sync/internal/magento"
)

// MergeRoleSupplement attaches explicit allow/deny permission trees from
// the REST role endpoint onto roles already present in the set. GraphQL
// alone supplies role id and name only, so without this supplement roles
// exist but carry no permission grants.
//
// Roles in the supplement that match no extracted role are ignored: a role
// assigned to nobody never made it into the GraphQL structure tree, and
// inventing it here would bypass dedup.
func MergeRoleSupplement(set *entity.Set, restRoles []magento.Role) int {
	if set == nil || len(restRoles) == 0 {
		return 0
	}
	byID := make(map[string]int, len(set.Roles))
	for i, role := range set.Roles {
		byID[role.ID] = i
	}

	merged := 0
	for _, rr := range restRoles {
		id := strconv.FormatInt(rr.ID, 10)
		idx, ok := byID[id]
		if !ok {
			continue
		}
		set.Roles[idx].Permissions = convertPermissions(rr.Permissions)
		merged++
	}
	return merged
}
