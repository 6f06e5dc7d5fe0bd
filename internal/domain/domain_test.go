package domain

import "testing"

func TestGrantActive(t *testing.T) {
	for _, status := range GrantStatuses {
		g := Grant{Status: status}
		want := status == GrantNotStarted || status == GrantInProgress
		if g.Active() != want {
			t.Fatalf("Active() for %s = %v", status, g.Active())
		}
	}
}

func TestLeadPI(t *testing.T) {
	if got := (Grant{}).LeadPI(); got != "" {
		t.Fatalf("expected unassigned, got %q", got)
	}
	if got := (Grant{PI: []string{"Ada", "Grace"}}).LeadPI(); got != "Ada" {
		t.Fatalf("expected first PI, got %q", got)
	}
}

func TestTaskDerived(t *testing.T) {
	empty := ""
	key := "budget_meeting"
	if (Task{}).Derived() || (Task{MilestoneKey: &empty}).Derived() {
		t.Fatal("user tasks must not count as derived")
	}
	if !(Task{MilestoneKey: &key}).Derived() {
		t.Fatal("milestone task not derived")
	}
}
