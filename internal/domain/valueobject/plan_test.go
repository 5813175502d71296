package valueobject

import (
	"errors"
	"testing"
)

func TestPlan_NewPlan(t *testing.T) {
	plan := NewPlan()

	if plan == nil {
		t.Fatal("expected non-nil plan")
	}
	if plan.Changes() == nil {
		t.Error("expected initialized changes slice")
	}
	if plan.HasChanges() {
		t.Error("expected empty plan to have no changes")
	}
}

func TestPlan_HasChanges(t *testing.T) {
	t.Run("only noop", func(t *testing.T) {
		plan := NewPlan()
		plan.AddChange(NewChange(ChangeTypeNoop, "example.com", "shop", "A", "mobile"))
		if plan.HasChanges() {
			t.Error("expected no changes")
		}
	})

	t.Run("with create", func(t *testing.T) {
		plan := NewPlan()
		plan.AddChange(NewChange(ChangeTypeNoop, "example.com", "shop", "A", "mobile"))
		plan.AddChange(NewChange(ChangeTypeCreate, "example.com", "shop", "A", "unicom"))
		if !plan.HasChanges() {
			t.Error("expected changes")
		}
	})
}

func TestPlan_FilterByType(t *testing.T) {
	plan := NewPlan()
	plan.AddChange(NewChange(ChangeTypeCreate, "example.com", "shop", "A", "mobile"))
	plan.AddChange(NewChange(ChangeTypeUpdate, "example.com", "shop", "A", "mobile"))
	plan.AddChange(NewChange(ChangeTypeCreate, "example.com", "shop", "A", "unicom"))

	if got := plan.Count(ChangeTypeCreate); got != 2 {
		t.Errorf("Count(create) = %d, want 2", got)
	}
	if got := plan.Count(ChangeTypeUpdate); got != 1 {
		t.Errorf("Count(update) = %d, want 1", got)
	}
	if got := plan.Count(ChangeTypeDelete); got != 0 {
		t.Errorf("Count(delete) = %d, want 0", got)
	}
}

func TestPlan_MergeAndErr(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	first := NewPlan()
	first.AddFailure(LineFailure{Domain: "example.com", SubDomain: "shop", Line: "mobile", Err: errA})
	second := NewPlan()
	second.AddChange(NewChange(ChangeTypeCreate, "example.com", "shop", "A", "unicom"))
	second.AddFailure(LineFailure{Domain: "example.com", SubDomain: "shop", Line: "telecom", Err: errB})

	first.Merge(second)
	first.Merge(nil)

	if len(first.Changes()) != 1 {
		t.Errorf("expected 1 change, got %d", len(first.Changes()))
	}
	if !first.HasFailures() {
		t.Fatal("expected failures")
	}
	err := first.Err()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Err() = %v, want both failures joined", err)
	}

	if NewPlan().Err() != nil {
		t.Error("expected nil error for plan without failures")
	}
}

func TestChange_Builders(t *testing.T) {
	base := NewChange(ChangeTypeUpdate, "example.com", "shop", "A", "mobile")
	ch := base.WithValue("1.1.1.1").WithOldValue("2.2.2.2").WithRecordID("42").WithApplied(true)

	if base.Value() != "" || base.Applied() {
		t.Error("builders must not mutate the receiver")
	}
	if ch.Value() != "1.1.1.1" || ch.OldValue() != "2.2.2.2" || ch.RecordID() != "42" || !ch.Applied() {
		t.Errorf("unexpected change: %s", ch)
	}
	if ch.FQDN() != "shop.example.com" {
		t.Errorf("FQDN() = %s", ch.FQDN())
	}
	if !ch.Equals(ch.Clone()) {
		t.Error("clone should equal original")
	}
	if ch.Equals(base) {
		t.Error("changed copy should differ from base")
	}
}

func TestLineFailure_FQDN(t *testing.T) {
	tests := []struct {
		failure LineFailure
		want    string
	}{
		{LineFailure{Domain: "example.com", SubDomain: "shop"}, "shop.example.com"},
		{LineFailure{Domain: "example.com", SubDomain: "@"}, "example.com"},
		{LineFailure{}, ""},
	}
	for _, tt := range tests {
		if got := tt.failure.FQDN(); got != tt.want {
			t.Errorf("FQDN() = %q, want %q", got, tt.want)
		}
	}
}

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeTypeNoop, "NOOP"},
		{ChangeTypeCreate, "CREATE"},
		{ChangeTypeUpdate, "UPDATE"},
		{ChangeTypeDelete, "DELETE"},
		{ChangeType(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestScope_Matches(t *testing.T) {
	tests := []struct {
		scope     string
		domain    string
		subDomain string
		want      bool
	}{
		{"", "example.com", "shop", true},
		{"example.com", "example.com", "shop", true},
		{"example.com", "other.com", "shop", false},
		{"example.com/shop", "example.com", "shop", true},
		{"example.com/shop", "example.com", "stock", false},
	}
	for _, tt := range tests {
		t.Run(tt.scope, func(t *testing.T) {
			s := ParseScope(tt.scope)
			if got := s.Matches(tt.domain, tt.subDomain); got != tt.want {
				t.Errorf("Matches(%s, %s) = %v, want %v", tt.domain, tt.subDomain, got, tt.want)
			}
		})
	}
}
