package core

// TransitionOption is one entry in a role's status menu.
type TransitionOption struct {
	Status OrderStatus `json:"status"`
	Label  string      `json:"label"`
}

// adminRoles see the full status list from any state.
var adminRoles = map[Role]struct{}{
	RoleAdmin:        {},
	RoleSuperAdmin:   {},
	RoleOrderManager: {},
	RoleFinanceAdmin: {},
}

// salesRepTransitions is the Sales Rep's declarative menu, keyed by current
// status. The first entry is always the current status (the "stay" option).
// Statuses absent from the map are read-only for the rep.
var salesRepTransitions = map[OrderStatus][]OrderStatus{
	StatusAssigned:           {StatusAssigned, StatusProductsLoaded},
	StatusProductsLoaded:     {StatusProductsLoaded}, // waits for the security gate
	StatusSecurityIncomplete: {StatusSecurityIncomplete, StatusProductReloaded},
	StatusSecurityChecked:    {StatusSecurityChecked, StatusDepartedFarm},
	StatusSecurityBypassed:   {StatusSecurityBypassed, StatusDepartedFarm},
	StatusDepartedFarm:       {StatusDepartedFarm, StatusDelivered, StatusDeliveredPartial, StatusDeliveredUnpaid},
	// Once delivered, only same-or-forward payment states are offered.
	StatusDeliveredUnpaid:  {StatusDeliveredUnpaid, StatusDeliveredPartial, StatusDelivered},
	StatusDeliveredPartial: {StatusDeliveredPartial, StatusDelivered},
	StatusDelivered:        {StatusDelivered},
}

// securityGuardTransitions overrides the guard's default menu for the states
// where the guard acts. Elsewhere the guard sees every status except
// Product Reloaded.
var securityGuardTransitions = map[OrderStatus][]OrderStatus{
	StatusProductsLoaded:  {StatusProductsLoaded, StatusSecurityChecked, StatusSecurityIncomplete},
	StatusProductReloaded: {StatusProductsLoaded, StatusSecurityChecked, StatusSecurityIncomplete},
	// From an incomplete check the guard must act through the
	// incomplete-check or off-hours bypass path, not the menu.
	StatusSecurityIncomplete: {StatusSecurityIncomplete},
}

// AvailableTransitions returns the ordered status menu for the given order
// and role. Pure: identical inputs always yield the identical ordered result.
func AvailableTransitions(order *Order, role Role) []TransitionOption {
	if _, ok := adminRoles[role]; ok {
		return toOptions(AllStatuses)
	}

	switch role {
	case RoleSalesRep:
		if statuses, ok := salesRepTransitions[order.Status]; ok {
			return toOptions(statuses)
		}
	case RoleSecurityGuard:
		if statuses, ok := securityGuardTransitions[order.Status]; ok {
			return toOptions(statuses)
		}
		statuses := make([]OrderStatus, 0, len(AllStatuses)-1)
		for _, s := range AllStatuses {
			if s != StatusProductReloaded {
				statuses = append(statuses, s)
			}
		}
		return toOptions(statuses)
	}

	// Any other role (or a rep outside their states): current status only.
	return toOptions([]OrderStatus{order.Status})
}

// CanTransition reports whether target is in the role's menu for the order's
// current status.
func CanTransition(order *Order, role Role, target OrderStatus) bool {
	for _, opt := range AvailableTransitions(order, role) {
		if opt.Status == target {
			return true
		}
	}
	return false
}

func toOptions(statuses []OrderStatus) []TransitionOption {
	opts := make([]TransitionOption, 0, len(statuses))
	for _, s := range statuses {
		opts = append(opts, TransitionOption{Status: s, Label: string(s)})
	}
	return opts
}
