// Package domain defines the persistent tree-registry entities, value types,
// error kinds, and rule evaluation primitives used by treeregistry.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the registry graph.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityTree identifies a registered tree.
	EntityTree EntityType = "tree"
	// EntityTreeLocation identifies the location record created alongside a tree.
	EntityTreeLocation EntityType = "tree_location"
	// EntitySpecies identifies a species record.
	EntitySpecies EntityType = "species"
	// EntityMunicipality identifies a municipality record.
	EntityMunicipality EntityType = "municipality"
	// EntityUser identifies a registered user.
	EntityUser EntityType = "user"
	// EntityTreeStatus identifies a tree status record.
	EntityTreeStatus EntityType = "tree_status"
	EntityPark       EntityType = "park"
	EntityStreet     EntityType = "street"
)

// Status enumerates the health states a tree status record can carry.
type Status string

// Canonical tree statuses. Only StatusDiseased and StatusCut affect aggregation.
const (
	StatusHealthy  Status = "healthy"
	StatusDiseased Status = "diseased"
	StatusToBeCut  Status = "to_be_cut"
	StatusCut      Status = "cut"
)

// CanonicalStatuses lists every status seeded into a fresh registry.
func CanonicalStatuses() []Status {
	return []Status{StatusHealthy, StatusDiseased, StatusToBeCut, StatusCut}
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusDiseased, StatusToBeCut, StatusCut:
		return true
	default:
		return false
	}
}

// Role distinguishes regular users from scientists.
type Role string

// User roles.
const (
	RoleRegular   Role = "regular"
	RoleScientist Role = "scientist"
)

// LocationKind discriminates the place a tree location points at.
type LocationKind string

// Location kinds.
const (
	LocationPark   LocationKind = "park"
	LocationStreet LocationKind = "street"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tree is a single registered tree. References point at other graph records by ID.
type Tree struct {
	Base
	Height         int       `json:"height"`
	Diameter       int       `json:"diameter"`
	DatePlanted    time.Time `json:"date_planted"`
	DateAdded      time.Time `json:"date_added"`
	StatusID       string    `json:"status_id"`
	SpeciesID      string    `json:"species_id"`
	UserID         string    `json:"user_id"`
	MunicipalityID string    `json:"municipality_id"`
	LocationID     *string   `json:"location_id,omitempty"`
}

// TreeLocation places a tree on a coordinate grid, optionally within a park or street.
type TreeLocation struct {
	Base
	X           int          `json:"x"`
	Y           int          `json:"y"`
	Description string       `json:"description"`
	TreeID      string       `json:"tree_id"`
	Kind        LocationKind `json:"kind,omitempty"`
	PlaceID     string       `json:"place_id,omitempty"`
}

// Species carries the per-tree environmental contribution used by the calculators.
type Species struct {
	Base
	Name              string `json:"name"`
	CarbonConsumption int    `json:"carbon_consumption"`
	OxygenProduction  int    `json:"oxygen_production"`
}

// Municipality groups trees administratively.
type Municipality struct {
	Base
	Name string `json:"name"`
}

// User is a registry account. PasswordHash holds a bcrypt hash, never the password.
type User struct {
	Base
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         Role   `json:"role"`
}

// IsScientist reports whether the user holds the scientist role.
func (u User) IsScientist() bool { return u.Role == RoleScientist }

// TreeStatus is a status record in the graph; trees reference it by ID.
type TreeStatus struct {
	Base
	Status Status `json:"status"`
}

// Park is a named park a tree location can sit in.
type Park struct {
	Base
	Name string `json:"name"`
}

// Street is a named street a tree location can sit on.
type Street struct {
	Base
	Name string `json:"name"`
}

// LocationRef names the park or street a registration targets.
type LocationRef struct {
	Kind LocationKind `json:"kind"`
	ID   string       `json:"id"`
}

// NormalizeDescription returns "" for blank descriptions and the input otherwise.
func NormalizeDescription(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}
	return description
}

// Change describes a mutation applied within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was deleted.
	ActionDelete Action = "delete"
)
