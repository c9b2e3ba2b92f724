package groups

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/openlabtools/labauth/pkg/account"
	"github.com/openlabtools/labauth/pkg/directory"
)

// fakeCreator records CreateGroup calls and hands out deterministic ids
// per name, mimicking an idempotent store.
type fakeCreator struct {
	ids   map[string]string
	calls []string
	err   error
}

func newFakeCreator() *fakeCreator {
	return &fakeCreator{ids: make(map[string]string)}
}

func (c *fakeCreator) CreateGroup(ctx context.Context, name string, perms account.Permissions, failOnDuplicate bool) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.calls = append(c.calls, name)
	if id, ok := c.ids[name]; ok {
		if failOnDuplicate {
			return "", account.ErrDuplicateGroup
		}
		return id, nil
	}
	id := fmt.Sprintf("g-%s", name)
	c.ids[name] = id
	return id, nil
}

type fakeDirectory struct {
	identity        *directory.UserWithUnit
	systems         []directory.System
	autonomySystems []directory.System
	err             error
}

func (d *fakeDirectory) FindUserWithUnit(ctx context.Context, login string) (*directory.UserWithUnit, error) {
	return d.identity, d.err
}

func (d *fakeDirectory) FindActiveSystems(ctx context.Context, login string) ([]directory.System, error) {
	return d.systems, d.err
}

func (d *fakeDirectory) FindActiveSystemsWithAutonomy(ctx context.Context, login string) ([]directory.System, error) {
	return d.autonomySystems, d.err
}

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		level string
		want  account.Permissions
	}{
		{"private", account.PermissionPrivate},
		{"read-only", account.PermissionGroupRead},
		{"read-annotate", account.PermissionGroupAnnotate},
		{"", account.PermissionPrivate},
		{"  read-only ", account.PermissionGroupRead},
		{"bogus", account.PermissionPrivate},
	}
	for _, tt := range tests {
		if got := PermissionsFor(tt.level); got != tt.want {
			t.Errorf("PermissionsFor(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestLiteralResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("parses csv and creates groups in order", func(t *testing.T) {
		creator := newFakeCreator()
		resolver := NewLiteralResolver(creator, Config{}, "imaging, , flow-cytometry ,imaging", "read-only")

		ids, err := resolver.ResolveGroups(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		// Duplicates within the candidate list go to the creator as-is.
		want := []string{"g-imaging", "g-flow-cytometry", "g-imaging"}
		if !reflect.DeepEqual(ids, want) {
			t.Errorf("got %v, want %v", ids, want)
		}
		if len(creator.calls) != 3 {
			t.Errorf("expected 3 create calls, got %d", len(creator.calls))
		}
	})

	t.Run("excluded names are skipped", func(t *testing.T) {
		creator := newFakeCreator()
		cfg := Config{ExcludedGroups: []string{"imaging"}}
		resolver := NewLiteralResolver(creator, cfg, "imaging,flow-cytometry", "private")

		ids, err := resolver.ResolveGroups(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids, []string{"g-flow-cytometry"}) {
			t.Errorf("got %v", ids)
		}
	})

	t.Run("does not require the directory", func(t *testing.T) {
		resolver := NewLiteralResolver(newFakeCreator(), Config{}, "a", "private")
		if resolver.RequiresDirectory() {
			t.Error("literal resolver must not require the directory")
		}
	})

	t.Run("creator failure aborts", func(t *testing.T) {
		creator := newFakeCreator()
		creator.err = errors.New("store down")
		resolver := NewLiteralResolver(creator, Config{}, "imaging", "private")
		if _, err := resolver.ResolveGroups(ctx, "ada"); err == nil {
			t.Error("expected error from creator")
		}
	})
}

func TestUnitResolver(t *testing.T) {
	ctx := context.Background()
	user := &directory.User{Login: "ada"}

	tests := []struct {
		name     string
		identity *directory.UserWithUnit
		want     []string
	}{
		{
			name:     "active unit resolves",
			identity: &directory.UserWithUnit{User: user, Unit: &directory.Unit{Key: "u1", Name: "photonics", Active: true}},
			want:     []string{"g-photonics"},
		},
		{
			name:     "inactive unit yields nothing",
			identity: &directory.UserWithUnit{User: user, Unit: &directory.Unit{Key: "u1", Name: "photonics"}},
			want:     nil,
		},
		{
			name:     "missing unit yields nothing",
			identity: &directory.UserWithUnit{User: user},
			want:     nil,
		},
		{
			name: "absent identity yields nothing",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := newFakeCreator()
			resolver := NewUnitResolver(&fakeDirectory{identity: tt.identity}, creator, Config{}, "read-annotate")

			ids, err := resolver.ResolveGroups(ctx, "ada")
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("got %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("got %v, want %v", ids, tt.want)
				}
			}
		})
	}

	t.Run("directory failure propagates", func(t *testing.T) {
		dir := &fakeDirectory{err: &directory.RemoteError{Op: "getUser", Err: errors.New("timeout")}}
		resolver := NewUnitResolver(dir, newFakeCreator(), Config{}, "private")
		if _, err := resolver.ResolveGroups(ctx, "ada"); !directory.IsRemote(err) {
			t.Errorf("expected remote error, got %v", err)
		}
	})
}

func TestInstrumentResolver(t *testing.T) {
	ctx := context.Background()
	systems := []directory.System{
		{ID: 1, Name: "confocal-1", Type: "microscope", FacilityID: 10, Active: true},
		{ID: 2, Name: "sorter-1", Type: "cytometer", FacilityID: 10, Active: true},
		{ID: 3, Name: "confocal-2", Type: "microscope", FacilityID: 20, Active: true},
	}

	t.Run("whitelist filters facility and type", func(t *testing.T) {
		dir := &fakeDirectory{systems: systems}
		creator := newFakeCreator()
		resolver := NewInstrumentResolver(dir, creator, Config{}, "read-only", []int{10}, []string{"microscope"})

		ids, err := resolver.ResolveGroups(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids, []string{"g-confocal-1"}) {
			t.Errorf("got %v", ids)
		}
	})

	t.Run("empty whitelist passes nothing", func(t *testing.T) {
		dir := &fakeDirectory{systems: systems}
		resolver := NewInstrumentResolver(dir, newFakeCreator(), Config{}, "read-only", nil, nil)

		ids, err := resolver.ResolveGroups(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no groups on empty whitelist, got %v", ids)
		}
	})

	t.Run("autonomy variant uses the autonomy-filtered fetch", func(t *testing.T) {
		dir := &fakeDirectory{
			systems:         systems,
			autonomySystems: systems[:1],
		}
		resolver := NewAutonomyResolver(dir, newFakeCreator(), Config{}, "read-only", []int{10, 20}, []string{"microscope", "cytometer"})

		ids, err := resolver.ResolveGroups(ctx, "ada")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ids, []string{"g-confocal-1"}) {
			t.Errorf("got %v", ids)
		}
	})
}

func TestCompositeResolver(t *testing.T) {
	ctx := context.Background()
	creator := newFakeCreator()
	cfg := Config{}

	first := NewLiteralResolver(creator, cfg, "alpha,beta", "private")
	second := NewLiteralResolver(creator, cfg, "beta,gamma", "private")
	composite := NewCompositeResolver(first, second)

	ids, err := composite.ResolveGroups(ctx, "ada")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"g-alpha", "g-beta", "g-gamma"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("got %v, want %v", ids, want)
	}

	if composite.RequiresDirectory() {
		t.Error("all-literal composite must not require the directory")
	}
	withDir := NewCompositeResolver(first, NewUnitResolver(&fakeDirectory{}, creator, cfg, "private"))
	if !withDir.RequiresDirectory() {
		t.Error("composite with a directory resolver must require the directory")
	}
}

func TestLegacyAdapter(t *testing.T) {
	creator := newFakeCreator()
	adapter := NewLegacyAdapter(NewLiteralResolver(creator, Config{}, "imaging", "private"))

	attrs := map[string][]string{"memberOf": {"cn=ignored"}}
	ids, err := adapter.Groups(context.Background(), "ada", attrs)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"g-imaging"}) {
		t.Errorf("got %v", ids)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	resolver := NewLiteralResolver(newFakeCreator(), Config{}, "a", "private")

	if err := registry.Register("new-user", resolver); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register("new-user", resolver); err == nil {
		t.Error("expected error on duplicate registration")
	}

	got, err := registry.Get("new-user")
	if err != nil {
		t.Fatal(err)
	}
	if got != Resolver(resolver) {
		t.Error("expected the registered resolver back")
	}

	if _, err := registry.Get("missing"); err == nil {
		t.Error("expected error for unknown name")
	}

	if names := registry.Names(); !reflect.DeepEqual(names, []string{"new-user"}) {
		t.Errorf("got names %v", names)
	}
}
