package domain

import (
	"fmt"
	"strings"

	"github.com/mikespook/gorbac/v2"
	"github.com/samber/lo"
)

// AccessTier is the visibility class attached to knowledge items and documents.
type AccessTier string

const (
	AccessTierGeneral      AccessTier = "general"
	AccessTierDepartmental AccessTier = "departmental"
	AccessTierManagement   AccessTier = "management"
	AccessTierExecutive    AccessTier = "executive"
	AccessTierHR           AccessTier = "hr"
	AccessTierIT           AccessTier = "it"
	AccessTierFinance      AccessTier = "finance"
	AccessTierAdmin        AccessTier = "admin"
)

// AllAccessTiers lists every tier in canonical order.
var AllAccessTiers = []AccessTier{
	AccessTierGeneral,
	AccessTierDepartmental,
	AccessTierManagement,
	AccessTierExecutive,
	AccessTierHR,
	AccessTierIT,
	AccessTierFinance,
	AccessTierAdmin,
}

// Role names understood by the access policy. Anything else is treated as a regular employee.
const (
	RoleEmployee  = "employee"
	RoleManager   = "manager"
	RoleExecutive = "executive"
	RoleAdmin     = "admin"
)

// ParseAccessTier converts a string into a known AccessTier.
func ParseAccessTier(s string) (AccessTier, error) {
	tier := AccessTier(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidAccessTier(tier) {
		return "", NewDomainErrorWithCause(ErrCodeValidation, "invalid access tier", fmt.Errorf("unknown tier %q", s))
	}
	return tier, nil
}

// IsValidAccessTier reports whether t is one of the closed set of tiers.
func IsValidAccessTier(t AccessTier) bool {
	return lo.Contains(AllAccessTiers, t)
}

var tierPolicy = newTierPolicy()

// newTierPolicy builds the role ladder. Each rank inherits the tiers of the rank below it.
func newTierPolicy() *gorbac.RBAC {
	rbac := gorbac.New()

	employee := gorbac.NewStdRole(RoleEmployee)
	employee.Assign(tierPermission(AccessTierGeneral))
	employee.Assign(tierPermission(AccessTierDepartmental))

	manager := gorbac.NewStdRole(RoleManager)
	manager.Assign(tierPermission(AccessTierManagement))

	executive := gorbac.NewStdRole(RoleExecutive)
	executive.Assign(tierPermission(AccessTierExecutive))

	admin := gorbac.NewStdRole(RoleAdmin)
	for _, tier := range AllAccessTiers {
		admin.Assign(tierPermission(tier))
	}

	for _, role := range []*gorbac.StdRole{employee, manager, executive, admin} {
		must(rbac.Add(role))
	}

	must(rbac.SetParent(RoleManager, RoleEmployee))
	must(rbac.SetParent(RoleExecutive, RoleManager))
	must(rbac.SetParent(RoleAdmin, RoleExecutive))

	return rbac
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("access policy: %v", err))
	}
}

func tierPermission(t AccessTier) gorbac.Permission {
	return gorbac.NewStdPermission(string(t))
}

var departmentTiers = map[string]AccessTier{
	"HR":      AccessTierHR,
	"IT":      AccessTierIT,
	"FINANCE": AccessTierFinance,
}

// AccessibleTiers returns the tiers a requester with the given role and
// department may read, in canonical order and without duplicates.
// General is always present.
func AccessibleTiers(role, department string) []AccessTier {
	roleID := strings.ToLower(strings.TrimSpace(role))
	switch roleID {
	case RoleManager, RoleExecutive, RoleAdmin:
	default:
		roleID = RoleEmployee
	}

	granted := make([]AccessTier, 0, len(AllAccessTiers))
	for _, tier := range AllAccessTiers {
		if tier == AccessTierGeneral || tierPolicy.IsGranted(roleID, tierPermission(tier), nil) {
			granted = append(granted, tier)
		}
	}

	if tier, ok := departmentTiers[strings.ToUpper(strings.TrimSpace(department))]; ok {
		granted = append(granted, tier)
	}

	granted = lo.Uniq(granted)
	return lo.Filter(AllAccessTiers, func(t AccessTier, _ int) bool {
		return lo.Contains(granted, t)
	})
}

// CanAccess reports whether tier is among the accessible tiers.
func CanAccess(tiers []AccessTier, tier AccessTier) bool {
	return lo.Contains(tiers, tier)
}
