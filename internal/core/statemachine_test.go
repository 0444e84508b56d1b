package core_test

import (
	"testing"

	"farmgate/internal/core"
)

func orderIn(status core.OrderStatus) *core.Order {
	return &core.Order{ID: 1, Status: status}
}

func statusList(opts []core.TransitionOption) []core.OrderStatus {
	statuses := make([]core.OrderStatus, len(opts))
	for i, opt := range opts {
		statuses[i] = opt.Status
	}
	return statuses
}

func equalStatuses(a, b []core.OrderStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAvailableTransitions_SalesRep(t *testing.T) {
	tests := []struct {
		status core.OrderStatus
		want   []core.OrderStatus
	}{
		{core.StatusAssigned, []core.OrderStatus{core.StatusAssigned, core.StatusProductsLoaded}},
		{core.StatusProductsLoaded, []core.OrderStatus{core.StatusProductsLoaded}},
		{core.StatusSecurityIncomplete, []core.OrderStatus{core.StatusSecurityIncomplete, core.StatusProductReloaded}},
		{core.StatusSecurityChecked, []core.OrderStatus{core.StatusSecurityChecked, core.StatusDepartedFarm}},
		{core.StatusSecurityBypassed, []core.OrderStatus{core.StatusSecurityBypassed, core.StatusDepartedFarm}},
		{core.StatusDepartedFarm, []core.OrderStatus{core.StatusDepartedFarm, core.StatusDelivered, core.StatusDeliveredPartial, core.StatusDeliveredUnpaid}},
		{core.StatusDeliveredUnpaid, []core.OrderStatus{core.StatusDeliveredUnpaid, core.StatusDeliveredPartial, core.StatusDelivered}},
		{core.StatusDeliveredPartial, []core.OrderStatus{core.StatusDeliveredPartial, core.StatusDelivered}},
		{core.StatusDelivered, []core.OrderStatus{core.StatusDelivered}},
		// States outside the rep's map are read-only.
		{core.StatusPending, []core.OrderStatus{core.StatusPending}},
		{core.StatusCompleted, []core.OrderStatus{core.StatusCompleted}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := statusList(core.AvailableTransitions(orderIn(tt.status), core.RoleSalesRep))
			if !equalStatuses(got, tt.want) {
				t.Errorf("menu = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableTransitions_SecurityGuard(t *testing.T) {
	gateMenu := []core.OrderStatus{core.StatusProductsLoaded, core.StatusSecurityChecked, core.StatusSecurityIncomplete}

	for _, status := range []core.OrderStatus{core.StatusProductsLoaded, core.StatusProductReloaded} {
		got := statusList(core.AvailableTransitions(orderIn(status), core.RoleSecurityGuard))
		if !equalStatuses(got, gateMenu) {
			t.Errorf("guard menu at %s = %v, want %v", status, got, gateMenu)
		}
	}

	// Elsewhere the guard sees everything except Product Reloaded.
	got := statusList(core.AvailableTransitions(orderIn(core.StatusPending), core.RoleSecurityGuard))
	if len(got) != len(core.AllStatuses)-1 {
		t.Fatalf("guard default menu has %d entries, want %d", len(got), len(core.AllStatuses)-1)
	}
	for _, status := range got {
		if status == core.StatusProductReloaded {
			t.Error("guard default menu must not offer Product Reloaded")
		}
	}
}

func TestAvailableTransitions_AdminRolesSeeEverything(t *testing.T) {
	adminRoles := []core.Role{core.RoleAdmin, core.RoleSuperAdmin, core.RoleOrderManager, core.RoleFinanceAdmin}

	for _, role := range adminRoles {
		got := statusList(core.AvailableTransitions(orderIn(core.StatusCancelled), role))
		if !equalStatuses(got, core.AllStatuses) {
			t.Errorf("%s menu = %v, want all statuses", role, got)
		}
	}
}

func TestAvailableTransitions_UnknownRoleReadOnly(t *testing.T) {
	got := statusList(core.AvailableTransitions(orderIn(core.StatusDepartedFarm), core.Role("Janitor")))
	want := []core.OrderStatus{core.StatusDepartedFarm}
	if !equalStatuses(got, want) {
		t.Errorf("unknown role menu = %v, want %v", got, want)
	}
}

func TestAvailableTransitions_Deterministic(t *testing.T) {
	order := orderIn(core.StatusDepartedFarm)
	first := statusList(core.AvailableTransitions(order, core.RoleSalesRep))
	for i := 0; i < 10; i++ {
		again := statusList(core.AvailableTransitions(order, core.RoleSalesRep))
		if !equalStatuses(first, again) {
			t.Fatalf("run %d: menu order changed: %v vs %v", i, first, again)
		}
	}
}

func TestCanTransition(t *testing.T) {
	order := orderIn(core.StatusSecurityChecked)

	if !core.CanTransition(order, core.RoleSalesRep, core.StatusDepartedFarm) {
		t.Error("rep should be able to depart a security-checked order")
	}
	if core.CanTransition(order, core.RoleSalesRep, core.StatusCancelled) {
		t.Error("rep must not cancel")
	}
	if !core.CanTransition(order, core.RoleAdmin, core.StatusCancelled) {
		t.Error("admin should be able to cancel from any state")
	}
	if core.CanTransition(orderIn(core.StatusPending), core.Role("Viewer"), core.StatusAssigned) {
		t.Error("read-only role must not move an order")
	}
}
