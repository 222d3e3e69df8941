package core

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"treeregistry/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

type fixture struct {
	svc          *Service
	statuses     map[domain.Status]domain.TreeStatus
	oak          domain.Species
	user         domain.User
	municipality domain.Municipality
	park         domain.Park
	street       domain.Street
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return fixedNow })),
		WithPasswordCost(bcrypt.MinCost),
	}
	return NewInMemoryService(NewDefaultRulesEngine(), append(base, opts...)...)
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	svc := newTestService(t, opts...)
	f := fixture{svc: svc, statuses: make(map[domain.Status]domain.TreeStatus)}

	created, err := svc.EnsureDefaultStatuses(ctx)
	if err != nil {
		t.Fatalf("seed statuses: %v", err)
	}
	for _, st := range created {
		f.statuses[st.Status] = st
	}
	if f.oak, err = svc.CreateSpecies(ctx, "Oak", 4, 10); err != nil {
		t.Fatalf("create species: %v", err)
	}
	if f.user, err = svc.Register(ctx, "alice", "secret", false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if f.municipality, err = svc.CreateMunicipality(ctx, "Montreal", "mtl"); err != nil {
		t.Fatalf("create municipality: %v", err)
	}
	if f.park, err = svc.CreatePark(ctx, "Mont Royal"); err != nil {
		t.Fatalf("create park: %v", err)
	}
	if f.street, err = svc.CreateStreet(ctx, "Sherbrooke"); err != nil {
		t.Fatalf("create street: %v", err)
	}
	return f
}

func (f fixture) registration(status domain.Status) TreeRegistration {
	return TreeRegistration{
		Height:         5,
		Diameter:       2,
		DatePlanted:    fixedNow.AddDate(-1, 0, 0),
		StatusID:       strPtr(f.statuses[status].ID),
		SpeciesID:      strPtr(f.oak.ID),
		UserID:         strPtr(f.user.ID),
		MunicipalityID: strPtr(f.municipality.ID),
		X:              1,
		Y:              2,
		Description:    "by the lake",
	}
}

func (f fixture) plant(t *testing.T, status domain.Status) domain.Tree {
	t.Helper()
	tree, err := f.svc.CreateTree(context.Background(), f.registration(status))
	if err != nil {
		t.Fatalf("create %s tree: %v", status, err)
	}
	return tree
}

// fakeGraph is a ReferenceGraph over plain sets of identifiers.
type fakeGraph struct {
	statuses, species, users, municipalities, parks, streets map[string]bool
	lookups                                                  int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		statuses:       map[string]bool{"st": true},
		species:        map[string]bool{"sp": true},
		users:          map[string]bool{"u": true},
		municipalities: map[string]bool{"m": true},
		parks:          map[string]bool{"p": true},
		streets:        map[string]bool{"s": true},
	}
}

func (g *fakeGraph) FindTreeStatus(id string) (domain.TreeStatus, bool) {
	g.lookups++
	return domain.TreeStatus{Base: domain.Base{ID: id}}, g.statuses[id]
}

func (g *fakeGraph) FindSpecies(id string) (domain.Species, bool) {
	g.lookups++
	return domain.Species{Base: domain.Base{ID: id}}, g.species[id]
}

func (g *fakeGraph) FindUser(id string) (domain.User, bool) {
	g.lookups++
	return domain.User{Base: domain.Base{ID: id}}, g.users[id]
}

func (g *fakeGraph) FindMunicipality(id string) (domain.Municipality, bool) {
	g.lookups++
	return domain.Municipality{Base: domain.Base{ID: id}}, g.municipalities[id]
}

func (g *fakeGraph) FindPark(id string) (domain.Park, bool) {
	g.lookups++
	return domain.Park{Base: domain.Base{ID: id}}, g.parks[id]
}

func (g *fakeGraph) FindStreet(id string) (domain.Street, bool) {
	g.lookups++
	return domain.Street{Base: domain.Base{ID: id}}, g.streets[id]
}

func validRegistration() TreeRegistration {
	return TreeRegistration{
		Height:         3,
		Diameter:       1,
		DatePlanted:    fixedNow.AddDate(0, -1, 0),
		StatusID:       strPtr("st"),
		SpeciesID:      strPtr("sp"),
		UserID:         strPtr("u"),
		MunicipalityID: strPtr("m"),
		X:              4,
		Y:              5,
		Description:    "corner",
	}
}
