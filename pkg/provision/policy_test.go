package provision

import (
	"context"
	"reflect"
	"testing"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/account/accounttest"
)

func TestPolicyByName(t *testing.T) {
	if _, err := PolicyByName("additive"); err != nil {
		t.Error(err)
	}
	if _, err := PolicyByName(""); err != nil {
		t.Error("blank name should default to additive")
	}
	if _, err := PolicyByName("authoritative"); err != nil {
		t.Error(err)
	}
	if _, err := PolicyByName("mirror"); err == nil {
		t.Error("expected error for unknown policy name")
	}
}

// reconcileFixture seeds a store with an account that is a member of
// the given group names (first = default) and returns the store, the
// account and a name→id lookup covering extra group names too.
func reconcileFixture(t *testing.T, memberNames, extraNames []string) (*accounttest.Store, *account.Account, map[string]string, *UniversalGroups) {
	t.Helper()
	ctx := context.Background()
	store := accounttest.New()

	idsByName := make(map[string]string)
	for _, name := range append(append([]string{}, memberNames...), extraNames...) {
		id, err := store.CreateGroup(ctx, name, account.PermissionPrivate, false)
		if err != nil {
			t.Fatal(err)
		}
		idsByName[name] = id
	}

	primary := idsByName[memberNames[0]]
	var secondary []string
	for _, name := range memberNames[1:] {
		secondary = append(secondary, idsByName[name])
	}
	if _, err := store.CreateAccount(ctx, &account.Account{Login: "ada"}, primary, secondary); err != nil {
		t.Fatal(err)
	}

	universal, err := LookupUniversalGroups(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	acct, err := store.FindAccountByLogin(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	return store, acct, idsByName, universal
}

func TestAdditivePolicy(t *testing.T) {
	ctx := context.Background()
	store, acct, ids, universal := reconcileFixture(t, []string{"A", "B"}, []string{"C"})

	external := []string{ids["B"], ids["C"]}
	err := AdditivePolicy{}.Reconcile(ctx, store, acct, acct.GroupIDs(), external, universal)
	if err != nil {
		t.Fatal(err)
	}

	// Local-only membership A is preserved, C is added.
	got := store.GroupNamesOf("ada")
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAuthoritativePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors external grants", func(t *testing.T) {
		store, acct, ids, universal := reconcileFixture(t, []string{"A", "B", "system"}, []string{"C"})

		external := []string{ids["B"], ids["C"]}
		err := AuthoritativePolicy{}.Reconcile(ctx, store, acct, acct.GroupIDs(), external, universal)
		if err != nil {
			t.Fatal(err)
		}

		// A removed, C added, the universal system group untouched.
		got := store.GroupNamesOf("ada")
		want := []string{"B", "system", "C"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("never adds or removes universal groups", func(t *testing.T) {
		store, acct, ids, universal := reconcileFixture(t, []string{"A"}, nil)

		// External claims both universal groups and drops A.
		external := []string{universal.SystemID, universal.AuthenticatedID, ids["A"]}
		err := AuthoritativePolicy{}.Reconcile(ctx, store, acct, acct.GroupIDs(), external, universal)
		if err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		if !reflect.DeepEqual(got, []string{"A"}) {
			t.Errorf("universal groups leaked into memberships: %v", got)
		}
	})
}

func TestDefaultGroupFixupAfterAdd(t *testing.T) {
	ctx := context.Background()
	store := accounttest.New()

	universal, err := LookupUniversalGroups(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	labID, err := store.CreateGroup(ctx, "photonics", account.PermissionPrivate, false)
	if err != nil {
		t.Fatal(err)
	}

	// Account starts with only the authenticated-users placeholder as
	// its default group.
	if _, err := store.CreateAccount(ctx, &account.Account{Login: "ada"}, universal.AuthenticatedID, nil); err != nil {
		t.Fatal(err)
	}
	acct, err := store.FindAccountByLogin(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}

	err = AdditivePolicy{}.Reconcile(ctx, store, acct, acct.GroupIDs(), []string{labID}, universal)
	if err != nil {
		t.Fatal(err)
	}

	got := store.GroupNamesOf("ada")
	if len(got) == 0 || got[0] != "photonics" {
		t.Errorf("expected photonics as new default group, got %v", got)
	}
}
