package domain

import "context"

// Transaction exposes the graph mutations a persistence implementation must
// support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateTree(Tree) (Tree, error)
	UpdateTree(id string, mutator func(*Tree) error) (Tree, error)
	DeleteTree(id string) error
	CreateTreeLocation(TreeLocation) (TreeLocation, error)
	CreateSpecies(Species) (Species, error)
	CreateMunicipality(Municipality) (Municipality, error)
	CreateUser(User) (User, error)
	CreateTreeStatus(TreeStatus) (TreeStatus, error)
	CreatePark(Park) (Park, error)
	CreateStreet(Street) (Street, error)
}

// TransactionView provides read-only, identity-based access to graph contents.
type TransactionView interface {
	RuleView
	ListTreeLocations() []TreeLocation
	ListSpecies() []Species
	ListMunicipalities() []Municipality
	ListTreeStatuses() []TreeStatus
	ListParks() []Park
	ListStreets() []Street
	FindTree(id string) (Tree, bool)
	FindTreeLocation(id string) (TreeLocation, bool)
	FindPark(id string) (Park, bool)
	FindStreet(id string) (Street, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetTree(id string) (Tree, bool)
	ListTrees() []Tree
	ListSpecies() []Species
	ListMunicipalities() []Municipality
	ListUsers() []User
	ListTreeStatuses() []TreeStatus
}
