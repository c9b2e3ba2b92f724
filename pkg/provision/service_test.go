package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/account/accounttest"
	"github.com/openlabtools/labauth/pkg/directory"
)

// fakeDir is a canned provisioning directory. Passwords validate when
// they equal the stored password.
type fakeDir struct {
	identity *directory.UserWithUnit
	password string
	err      error

	authCalls int
}

func (d *fakeDir) FindUserWithUnit(ctx context.Context, login string) (*directory.UserWithUnit, error) {
	return d.identity, d.err
}

func (d *fakeDir) CheckAuthentication(ctx context.Context, login, password string) (bool, error) {
	d.authCalls++
	if d.err != nil {
		return false, d.err
	}
	return password == d.password, nil
}

// stubResolver returns a fixed id list. Ids must already exist in the
// store when the service hands them to CreateAccount.
type stubResolver struct {
	ids []string
	err error
}

func (r *stubResolver) ResolveGroups(ctx context.Context, login string) ([]string, error) {
	return r.ids, r.err
}

func (r *stubResolver) RequiresDirectory() bool { return true }

func activeIdentity(login string) *directory.UserWithUnit {
	return &directory.UserWithUnit{
		User: &directory.User{
			Login:     login,
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.org",
			Active:    true,
		},
	}
}

func newTestService(t *testing.T, cfg SyncConfig, dir Directory, store account.Store, resolvers Resolvers) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), cfg, dir, store, resolvers, nil)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func TestFindExternalIdentity(t *testing.T) {
	store := accounttest.New()
	resolvers := Resolvers{NewUser: &stubResolver{}, Sync: &stubResolver{}, DefaultGroup: &stubResolver{}}

	t.Run("active identity is returned", func(t *testing.T) {
		svc := newTestService(t, SyncConfig{Enabled: true}, &fakeDir{identity: activeIdentity("ada")}, store, resolvers)
		identity, err := svc.FindExternalIdentity(context.Background(), "ada")
		if err != nil {
			t.Fatal(err)
		}
		if identity == nil {
			t.Fatal("expected identity")
		}
	})

	t.Run("inactive identity is treated as absent", func(t *testing.T) {
		inactive := activeIdentity("ada")
		inactive.User.Active = false
		svc := newTestService(t, SyncConfig{Enabled: true}, &fakeDir{identity: inactive}, store, resolvers)
		identity, err := svc.FindExternalIdentity(context.Background(), "ada")
		if err != nil {
			t.Fatal(err)
		}
		if identity != nil {
			t.Error("inactive identity must be absent")
		}
	})

	t.Run("remote failure propagates", func(t *testing.T) {
		dir := &fakeDir{err: &directory.RemoteError{Op: "getUser", Err: errors.New("down")}}
		svc := newTestService(t, SyncConfig{Enabled: true}, dir, store, resolvers)
		if _, err := svc.FindExternalIdentity(context.Background(), "ada"); !directory.IsRemote(err) {
			t.Errorf("expected remote error, got %v", err)
		}
	})
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("valid first login creates ordered memberships", func(t *testing.T) {
		store := accounttest.New()
		labID, err := store.CreateGroup(ctx, "confocal-1", account.PermissionGroupRead, false)
		if err != nil {
			t.Fatal(err)
		}
		dir := &fakeDir{identity: activeIdentity("ada"), password: "s3cret"}
		svc := newTestService(t, SyncConfig{Enabled: true}, dir, store, Resolvers{
			NewUser: &stubResolver{ids: []string{labID}},
		})

		created, err := svc.CreateAccount(ctx, "ada", "s3cret")
		if err != nil {
			t.Fatal(err)
		}
		if !created {
			t.Fatal("expected account creation")
		}

		got := store.GroupNamesOf("ada")
		if len(got) != 2 || got[0] != "confocal-1" || got[1] != account.AuthenticatedGroupName {
			t.Errorf("expected [confocal-1 users], got %v", got)
		}
		acct, err := store.FindAccountByLogin(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if acct.Email != "ada@example.org" {
			t.Errorf("expected attributes from directory, got email %q", acct.Email)
		}
	})

	t.Run("existing local account fails", func(t *testing.T) {
		store := accounttest.New()
		dir := &fakeDir{identity: activeIdentity("root"), password: "x"}
		svc := newTestService(t, SyncConfig{Enabled: true}, dir, store, Resolvers{NewUser: &stubResolver{}})

		_, err := svc.CreateAccount(ctx, "root", "x")
		if !errors.Is(err, ErrAccountExists) {
			t.Errorf("expected ErrAccountExists, got %v", err)
		}
		if dir.authCalls != 0 {
			t.Error("must not authenticate when the account already exists")
		}
	})

	t.Run("unknown upstream identity fails", func(t *testing.T) {
		store := accounttest.New()
		svc := newTestService(t, SyncConfig{Enabled: true}, &fakeDir{}, store, Resolvers{NewUser: &stubResolver{}})

		_, err := svc.CreateAccount(ctx, "ada", "x")
		if !errors.Is(err, ErrNotFoundUpstream) {
			t.Errorf("expected ErrNotFoundUpstream, got %v", err)
		}
	})

	t.Run("rejected password creates nothing", func(t *testing.T) {
		store := accounttest.New()
		dir := &fakeDir{identity: activeIdentity("ada"), password: "right"}
		svc := newTestService(t, SyncConfig{Enabled: true}, dir, store, Resolvers{NewUser: &stubResolver{}})

		created, err := svc.CreateAccount(ctx, "ada", "wrong")
		if err != nil {
			t.Fatal(err)
		}
		if created {
			t.Error("wrong password must not create an account")
		}
		if _, err := store.FindAccountByLogin(ctx, "ada"); !errors.Is(err, account.ErrAccountNotFound) {
			t.Error("no account must be persisted")
		}
	})

	t.Run("zero resolved groups fails with no account persisted", func(t *testing.T) {
		store := accounttest.New()
		dir := &fakeDir{identity: activeIdentity("ada"), password: "s3cret"}
		svc := newTestService(t, SyncConfig{Enabled: true}, dir, store, Resolvers{
			NewUser: &stubResolver{ids: nil},
		})

		_, err := svc.CreateAccount(ctx, "ada", "s3cret")
		if !errors.Is(err, ErrNoGroupResolved) {
			t.Errorf("expected ErrNoGroupResolved, got %v", err)
		}
		if _, err := store.FindAccountByLogin(ctx, "ada"); !errors.Is(err, account.ErrAccountNotFound) {
			t.Error("no account must be persisted")
		}
	})
}

func TestSynchronizeAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op when every sync step is disabled", func(t *testing.T) {
		store := accounttest.New()
		svc := newTestService(t, SyncConfig{Enabled: true}, &fakeDir{}, store, Resolvers{Sync: &stubResolver{}})
		if err := svc.SynchronizeAccount(ctx, "nobody"); err != nil {
			t.Errorf("disabled sync must be a no-op, got %v", err)
		}
	})

	t.Run("unknown local account fails", func(t *testing.T) {
		store := accounttest.New()
		svc := newTestService(t, SyncConfig{Enabled: true, SyncGroups: true}, &fakeDir{}, store, Resolvers{Sync: &stubResolver{}})
		err := svc.SynchronizeAccount(ctx, "nobody")
		if !errors.Is(err, ErrNotFoundLocally) {
			t.Errorf("expected ErrNotFoundLocally, got %v", err)
		}
	})

	t.Run("locally known but externally absent is left untouched", func(t *testing.T) {
		store := accounttest.New()
		labID, err := store.CreateGroup(ctx, "local-only", account.PermissionPrivate, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.CreateAccount(ctx, &account.Account{Login: "ada"}, labID, nil); err != nil {
			t.Fatal(err)
		}

		svc := newTestService(t, SyncConfig{Enabled: true, SyncGroups: true, Policy: PolicyAuthoritative},
			&fakeDir{}, store, Resolvers{Sync: &stubResolver{ids: nil}})
		if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		if len(got) != 1 || got[0] != "local-only" {
			t.Errorf("memberships must be untouched, got %v", got)
		}
	})

	t.Run("authoritative group sync mirrors the directory", func(t *testing.T) {
		store := accounttest.New()
		mustGroup := func(name string) string {
			t.Helper()
			id, err := store.CreateGroup(ctx, name, account.PermissionPrivate, false)
			if err != nil {
				t.Fatal(err)
			}
			return id
		}
		a, b, c := mustGroup("A"), mustGroup("B"), mustGroup("C")
		systemGroup, err := store.GetGroup(ctx, account.SystemGroupName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.CreateAccount(ctx, &account.Account{Login: "ada"}, a, []string{b, systemGroup.ID}); err != nil {
			t.Fatal(err)
		}

		dir := &fakeDir{identity: activeIdentity("ada")}
		svc := newTestService(t, SyncConfig{Enabled: true, SyncGroups: true, Policy: PolicyAuthoritative},
			dir, store, Resolvers{Sync: &stubResolver{ids: []string{b, c}}})

		if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		want := map[string]bool{"B": true, "C": true, "system": true}
		if len(got) != len(want) {
			t.Fatalf("expected memberships {B C system}, got %v", got)
		}
		for _, name := range got {
			if !want[name] {
				t.Errorf("unexpected membership %q in %v", name, got)
			}
		}
	})

	t.Run("protected accounts are never synchronized", func(t *testing.T) {
		store := accounttest.New()
		dir := &fakeDir{identity: activeIdentity("root")}
		svc := newTestService(t, SyncConfig{Enabled: true, SyncGroups: true},
			dir, store, Resolvers{Sync: &stubResolver{ids: []string{"g-x"}}})

		if err := svc.SynchronizeAccount(ctx, "root"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("root")
		if len(got) != 1 || got[0] != account.SystemGroupName {
			t.Errorf("protected account memberships must be untouched, got %v", got)
		}
	})
}

func TestDefaultGroupSync(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, defaultName string) (*accounttest.Store, string) {
		t.Helper()
		store := accounttest.New()
		defaultID, err := store.CreateGroup(ctx, defaultName, account.PermissionPrivate, false)
		if err != nil {
			t.Fatal(err)
		}
		targetID, err := store.CreateGroup(ctx, "confocal-1", account.PermissionPrivate, false)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.CreateAccount(ctx, &account.Account{Login: "ada"}, defaultID, nil); err != nil {
			t.Fatal(err)
		}
		return store, targetID
	}

	t.Run("matching default group is overwritten", func(t *testing.T) {
		store, targetID := setup(t, "AutoGroup1")
		svc := newTestService(t, SyncConfig{Enabled: true, DefaultGroupPattern: "^AutoGroup.*"},
			&fakeDir{identity: activeIdentity("ada")}, store,
			Resolvers{DefaultGroup: &stubResolver{ids: []string{targetID}}})

		if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		if len(got) == 0 || got[0] != "confocal-1" {
			t.Errorf("expected confocal-1 as default, got %v", got)
		}
	})

	t.Run("non-matching default group is an explicit choice", func(t *testing.T) {
		store, targetID := setup(t, "MyCustomGroup")
		svc := newTestService(t, SyncConfig{Enabled: true, DefaultGroupPattern: "^AutoGroup.*"},
			&fakeDir{identity: activeIdentity("ada")}, store,
			Resolvers{DefaultGroup: &stubResolver{ids: []string{targetID}}})

		if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		if len(got) != 1 || got[0] != "MyCustomGroup" {
			t.Errorf("expected default group untouched, got %v", got)
		}
	})

	t.Run("invalid pattern disables the step", func(t *testing.T) {
		store, targetID := setup(t, "AutoGroup1")
		svc := newTestService(t, SyncConfig{Enabled: true, DefaultGroupPattern: "("},
			&fakeDir{identity: activeIdentity("ada")}, store,
			Resolvers{DefaultGroup: &stubResolver{ids: []string{targetID}}})

		if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
			t.Fatal(err)
		}
		got := store.GroupNamesOf("ada")
		if len(got) != 1 || got[0] != "AutoGroup1" {
			t.Errorf("expected default group untouched, got %v", got)
		}
	})
}

func TestAttributeSync(t *testing.T) {
	ctx := context.Background()
	store := accounttest.New()
	labID, err := store.CreateGroup(ctx, "lab", account.PermissionPrivate, false)
	if err != nil {
		t.Fatal(err)
	}
	acctSeed := &account.Account{
		Login:       "ada",
		FirstName:   "Adah",
		Institution: "Old Institute",
	}
	if _, err := store.CreateAccount(ctx, acctSeed, labID, nil); err != nil {
		t.Fatal(err)
	}

	identity := activeIdentity("ada")
	identity.User.Institution = "" // directory has no institution value

	svc := newTestService(t, SyncConfig{Enabled: true, SyncAttributes: true},
		&fakeDir{identity: identity}, store, Resolvers{})

	if err := svc.SynchronizeAccount(ctx, "ada"); err != nil {
		t.Fatal(err)
	}

	acct, err := store.FindAccountByLogin(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	if acct.FirstName != "Ada" {
		t.Errorf("external value must overwrite local, got %q", acct.FirstName)
	}
	if acct.Email != "ada@example.org" {
		t.Errorf("empty local value must be filled, got %q", acct.Email)
	}
	if acct.Institution != "Old Institute" {
		t.Errorf("empty external value must not erase local, got %q", acct.Institution)
	}
}
