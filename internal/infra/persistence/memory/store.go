// Package memory provides the in-memory registry graph used directly in tests
// and ephemeral environments, and wrapped by the snapshotting stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"treeregistry/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Tree aliases domain.Tree for in-memory persistence operations.
	Tree = domain.Tree
	// TreeLocation aliases domain.TreeLocation.
	TreeLocation = domain.TreeLocation
	// Species aliases domain.Species.
	Species = domain.Species
	// Municipality aliases domain.Municipality.
	Municipality = domain.Municipality
	// User aliases domain.User.
	User = domain.User
	// TreeStatus aliases domain.TreeStatus.
	TreeStatus = domain.TreeStatus
	// Park aliases domain.Park.
	Park = domain.Park
	// Street aliases domain.Street.
	Street = domain.Street
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	trees          map[string]Tree
	locations      map[string]TreeLocation
	species        map[string]Species
	municipalities map[string]Municipality
	users          map[string]User
	statuses       map[string]TreeStatus
	parks          map[string]Park
	streets        map[string]Street
}

func newMemoryState() memoryState {
	return memoryState{
		trees:          make(map[string]Tree),
		locations:      make(map[string]TreeLocation),
		species:        make(map[string]Species),
		municipalities: make(map[string]Municipality),
		users:          make(map[string]User),
		statuses:       make(map[string]TreeStatus),
		parks:          make(map[string]Park),
		streets:        make(map[string]Street),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.trees {
		cloned.trees[k] = cloneTree(v)
	}
	for k, v := range s.locations {
		cloned.locations[k] = v
	}
	for k, v := range s.species {
		cloned.species[k] = v
	}
	for k, v := range s.municipalities {
		cloned.municipalities[k] = v
	}
	for k, v := range s.users {
		cloned.users[k] = v
	}
	for k, v := range s.statuses {
		cloned.statuses[k] = v
	}
	for k, v := range s.parks {
		cloned.parks[k] = v
	}
	for k, v := range s.streets {
		cloned.streets[k] = v
	}
	return cloned
}

func cloneTree(t Tree) Tree {
	cp := t
	if t.LocationID != nil {
		id := *t.LocationID
		cp.LocationID = &id
	}
	return cp
}

// sortRecords orders records by creation time, then ID, so listings are stable.
func sortRecords[T any](records []T, base func(T) domain.Base) []T {
	sort.Slice(records, func(i, j int) bool {
		bi, bj := base(records[i]), base(records[j])
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.Before(bj.CreatedAt)
		}
		return bi.ID < bj.ID
	})
	return records
}

func listTrees(state *memoryState) []Tree {
	out := make([]Tree, 0, len(state.trees))
	for _, t := range state.trees {
		out = append(out, cloneTree(t))
	}
	return sortRecords(out, func(t Tree) domain.Base { return t.Base })
}

func listMap[T any](m map[string]T, base func(T) domain.Base) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return sortRecords(out, base)
}

func locationBase(t TreeLocation) domain.Base     { return t.Base }
func speciesBase(s Species) domain.Base           { return s.Base }
func municipalityBase(m Municipality) domain.Base { return m.Base }
func userBase(u User) domain.Base                 { return u.Base }
func statusBase(s TreeStatus) domain.Base         { return s.Base }
func parkBase(p Park) domain.Base                 { return p.Base }
func streetBase(s Street) domain.Base             { return s.Base }

// Store provides an in-memory transactional registry graph.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider; nil restores the UTC wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListTrees() []Tree { return listTrees(v.state) }

func (v transactionView) ListTreeLocations() []TreeLocation {
	return listMap(v.state.locations, locationBase)
}

func (v transactionView) ListSpecies() []Species { return listMap(v.state.species, speciesBase) }

func (v transactionView) ListMunicipalities() []Municipality {
	return listMap(v.state.municipalities, municipalityBase)
}

func (v transactionView) ListUsers() []User { return listMap(v.state.users, userBase) }

func (v transactionView) ListTreeStatuses() []TreeStatus {
	return listMap(v.state.statuses, statusBase)
}

func (v transactionView) ListParks() []Park { return listMap(v.state.parks, parkBase) }

func (v transactionView) ListStreets() []Street { return listMap(v.state.streets, streetBase) }

func (v transactionView) FindTree(id string) (Tree, bool) {
	t, ok := v.state.trees[id]
	if !ok {
		return Tree{}, false
	}
	return cloneTree(t), true
}

func (v transactionView) FindTreeLocation(id string) (TreeLocation, bool) {
	l, ok := v.state.locations[id]
	return l, ok
}

func (v transactionView) FindSpecies(id string) (Species, bool) {
	sp, ok := v.state.species[id]
	return sp, ok
}

func (v transactionView) FindMunicipality(id string) (Municipality, bool) {
	m, ok := v.state.municipalities[id]
	return m, ok
}

func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

func (v transactionView) FindTreeStatus(id string) (TreeStatus, bool) {
	st, ok := v.state.statuses[id]
	return st, ok
}

func (v transactionView) FindPark(id string) (Park, bool) {
	p, ok := v.state.parks[id]
	return p, ok
}

func (v transactionView) FindStreet(id string) (Street, bool) {
	st, ok := v.state.streets[id]
	return st, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	return s.RunAndPersist(ctx, fn, nil)
}

// RunAndPersist runs fn like RunInTransaction and hands the resulting state
// to persist before it becomes visible. A persist error discards the
// transaction, so readers never see state that was not written. Commits are
// serialised, so snapshots reach persist in commit order.
func (s *Store) RunAndPersist(ctx context.Context, fn func(tx Transaction) error, persist func(context.Context, Snapshot) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if persist != nil {
		if err := persist(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) stamp(base *domain.Base) {
	if base.ID == "" {
		base.ID = tx.store.newID()
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
}

func (tx *transaction) checkTreeReferences(t Tree) error {
	if _, ok := tx.state.statuses[t.StatusID]; !ok {
		return fmt.Errorf("tree status %q not found for tree", t.StatusID)
	}
	if _, ok := tx.state.species[t.SpeciesID]; !ok {
		return fmt.Errorf("species %q not found for tree", t.SpeciesID)
	}
	if _, ok := tx.state.users[t.UserID]; !ok {
		return fmt.Errorf("user %q not found for tree", t.UserID)
	}
	if _, ok := tx.state.municipalities[t.MunicipalityID]; !ok {
		return fmt.Errorf("municipality %q not found for tree", t.MunicipalityID)
	}
	if t.LocationID != nil {
		if _, ok := tx.state.locations[*t.LocationID]; !ok {
			return fmt.Errorf("tree location %q not found for tree", *t.LocationID)
		}
	}
	return nil
}

// CreateTree stores a new tree. All references must resolve within the transaction.
func (tx *transaction) CreateTree(t Tree) (Tree, error) {
	tx.stamp(&t.Base)
	if _, exists := tx.state.trees[t.ID]; exists {
		return Tree{}, fmt.Errorf("tree %q already exists", t.ID)
	}
	if err := tx.checkTreeReferences(t); err != nil {
		return Tree{}, err
	}
	tx.state.trees[t.ID] = cloneTree(t)
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionCreate, After: cloneTree(t)})
	return cloneTree(t), nil
}

// UpdateTree mutates an existing tree using the provided mutator.
func (tx *transaction) UpdateTree(id string, mutator func(*Tree) error) (Tree, error) {
	current, ok := tx.state.trees[id]
	if !ok {
		return Tree{}, fmt.Errorf("tree %q not found", id)
	}
	before := cloneTree(current)
	if err := mutator(&current); err != nil {
		return Tree{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := tx.checkTreeReferences(current); err != nil {
		return Tree{}, err
	}
	tx.state.trees[id] = cloneTree(current)
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionUpdate, Before: before, After: cloneTree(current)})
	return cloneTree(current), nil
}

// DeleteTree removes a tree together with its location record.
func (tx *transaction) DeleteTree(id string) error {
	current, ok := tx.state.trees[id]
	if !ok {
		return fmt.Errorf("tree %q not found", id)
	}
	for locID, loc := range tx.state.locations {
		if loc.TreeID == id {
			delete(tx.state.locations, locID)
			tx.recordChange(Change{Entity: domain.EntityTreeLocation, Action: domain.ActionDelete, Before: loc})
		}
	}
	delete(tx.state.trees, id)
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionDelete, Before: cloneTree(current)})
	return nil
}

// CreateTreeLocation stores a location and links it back to its tree.
func (tx *transaction) CreateTreeLocation(l TreeLocation) (TreeLocation, error) {
	tx.stamp(&l.Base)
	if _, exists := tx.state.locations[l.ID]; exists {
		return TreeLocation{}, fmt.Errorf("tree location %q already exists", l.ID)
	}
	tree, ok := tx.state.trees[l.TreeID]
	if !ok {
		return TreeLocation{}, fmt.Errorf("tree %q not found for location", l.TreeID)
	}
	if tree.LocationID != nil {
		return TreeLocation{}, fmt.Errorf("tree %q already has location %q", l.TreeID, *tree.LocationID)
	}
	switch l.Kind {
	case domain.LocationPark:
		if _, ok := tx.state.parks[l.PlaceID]; !ok {
			return TreeLocation{}, fmt.Errorf("park %q not found for location", l.PlaceID)
		}
	case domain.LocationStreet:
		if _, ok := tx.state.streets[l.PlaceID]; !ok {
			return TreeLocation{}, fmt.Errorf("street %q not found for location", l.PlaceID)
		}
	case "":
		l.PlaceID = ""
	default:
		return TreeLocation{}, fmt.Errorf("unknown location kind %q", l.Kind)
	}
	tx.state.locations[l.ID] = l
	tx.recordChange(Change{Entity: domain.EntityTreeLocation, Action: domain.ActionCreate, After: l})

	before := cloneTree(tree)
	locID := l.ID
	tree.LocationID = &locID
	tree.UpdatedAt = tx.now
	tx.state.trees[tree.ID] = cloneTree(tree)
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionUpdate, Before: before, After: cloneTree(tree)})
	return l, nil
}

// CreateSpecies stores a species record.
func (tx *transaction) CreateSpecies(sp Species) (Species, error) {
	tx.stamp(&sp.Base)
	if _, exists := tx.state.species[sp.ID]; exists {
		return Species{}, fmt.Errorf("species %q already exists", sp.ID)
	}
	tx.state.species[sp.ID] = sp
	tx.recordChange(Change{Entity: domain.EntitySpecies, Action: domain.ActionCreate, After: sp})
	return sp, nil
}

// CreateMunicipality stores a municipality record.
func (tx *transaction) CreateMunicipality(m Municipality) (Municipality, error) {
	tx.stamp(&m.Base)
	if _, exists := tx.state.municipalities[m.ID]; exists {
		return Municipality{}, fmt.Errorf("municipality %q already exists", m.ID)
	}
	tx.state.municipalities[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityMunicipality, Action: domain.ActionCreate, After: m})
	return m, nil
}

// CreateUser stores a user record.
func (tx *transaction) CreateUser(u User) (User, error) {
	tx.stamp(&u.Base)
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	if u.Role == "" {
		u.Role = domain.RoleRegular
	}
	tx.state.users[u.ID] = u
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// CreateTreeStatus stores a status record.
func (tx *transaction) CreateTreeStatus(st TreeStatus) (TreeStatus, error) {
	if !st.Status.Valid() {
		return TreeStatus{}, fmt.Errorf("unknown tree status %q", st.Status)
	}
	tx.stamp(&st.Base)
	if _, exists := tx.state.statuses[st.ID]; exists {
		return TreeStatus{}, fmt.Errorf("tree status %q already exists", st.ID)
	}
	tx.state.statuses[st.ID] = st
	tx.recordChange(Change{Entity: domain.EntityTreeStatus, Action: domain.ActionCreate, After: st})
	return st, nil
}

// CreatePark stores a park record.
func (tx *transaction) CreatePark(p Park) (Park, error) {
	tx.stamp(&p.Base)
	if _, exists := tx.state.parks[p.ID]; exists {
		return Park{}, fmt.Errorf("park %q already exists", p.ID)
	}
	tx.state.parks[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPark, Action: domain.ActionCreate, After: p})
	return p, nil
}

// CreateStreet stores a street record.
func (tx *transaction) CreateStreet(st Street) (Street, error) {
	tx.stamp(&st.Base)
	if _, exists := tx.state.streets[st.ID]; exists {
		return Street{}, fmt.Errorf("street %q already exists", st.ID)
	}
	tx.state.streets[st.ID] = st
	tx.recordChange(Change{Entity: domain.EntityStreet, Action: domain.ActionCreate, After: st})
	return st, nil
}

// Read helpers ---------------------------------------------------------------

// GetTree retrieves a tree by ID from committed state.
func (s *Store) GetTree(id string) (Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.trees[id]
	if !ok {
		return Tree{}, false
	}
	return cloneTree(t), true
}

// ListTrees returns all trees from committed state.
func (s *Store) ListTrees() []Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTrees(&s.state)
}

// ListSpecies returns all species.
func (s *Store) ListSpecies() []Species {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMap(s.state.species, speciesBase)
}

// ListMunicipalities returns all municipalities.
func (s *Store) ListMunicipalities() []Municipality {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMap(s.state.municipalities, municipalityBase)
}

// ListUsers returns all registered users.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMap(s.state.users, userBase)
}

// ListTreeStatuses returns all status records.
func (s *Store) ListTreeStatuses() []TreeStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listMap(s.state.statuses, statusBase)
}
