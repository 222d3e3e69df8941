package core

import (
	"time"

	"treeregistry/pkg/domain"
)

// Registration messages, kept verbatim for API compatibility.
const (
	msgNegativeInteger      = "Cannot pass negative integer!"
	msgFuturePlanting       = "Cannot plant tree in the future!"
	msgStatusRequired       = "Status needs to be selected for registration!"
	msgSpeciesRequired      = "Species needs to be selected for registration!"
	msgUserRequired         = "User needs to be logged in for registration!"
	msgMunicipalityRequired = "Municipality needs to be selected for registration!"
	msgStatusMissing        = "Status must exist!"
	msgSpeciesMissing       = "Species must exist!"
	msgUserMissing          = "User must be registered!"
	msgMunicipalityMissing  = "Municipality must exist!"
	msgParkMissing          = "Park must exist!"
	msgStreetMissing        = "Street must exist!"
	msgInvalidLocation      = "Location must be a park or a street!"
)

// ReferenceGraph is the identity lookup surface the registration validator
// reads. domain.TransactionView satisfies it.
type ReferenceGraph interface {
	FindTreeStatus(id string) (domain.TreeStatus, bool)
	FindSpecies(id string) (domain.Species, bool)
	FindUser(id string) (domain.User, bool)
	FindMunicipality(id string) (domain.Municipality, bool)
	FindPark(id string) (domain.Park, bool)
	FindStreet(id string) (domain.Street, bool)
}

// TreeRegistration is the input to CreateTree. Nil reference IDs mean the
// caller selected nothing.
type TreeRegistration struct {
	Height         int                 `json:"height"`
	Diameter       int                 `json:"diameter"`
	DatePlanted    time.Time           `json:"date_planted"`
	StatusID       *string             `json:"status_id"`
	SpeciesID      *string             `json:"species_id"`
	UserID         *string             `json:"user_id"`
	MunicipalityID *string             `json:"municipality_id"`
	X              int                 `json:"x"`
	Y              int                 `json:"y"`
	Description    string              `json:"description"`
	Location       *domain.LocationRef `json:"location,omitempty"`
}

// ValidateTreeRegistration checks reg against graph and returns the
// normalised location description.
//
// Field rules run first and, when any fires, the lookups never run. Every
// fired rule of a pass is reported together in an *domain.InvalidInputError.
func ValidateTreeRegistration(graph ReferenceGraph, reg TreeRegistration, dateAdded time.Time) (string, error) {
	description := domain.NormalizeDescription(reg.Description)

	var issues []domain.Issue
	add := func(code domain.IssueCode, msg string) {
		issues = append(issues, domain.Issue{Code: code, Message: msg})
	}

	if reg.Height < 0 || reg.Diameter < 0 || reg.X < 0 || reg.Y < 0 {
		add(domain.IssueNegativeInteger, msgNegativeInteger)
	}
	if reg.DatePlanted.After(dateAdded) {
		add(domain.IssueFuturePlanting, msgFuturePlanting)
	}
	if reg.StatusID == nil {
		add(domain.IssueStatusRequired, msgStatusRequired)
	}
	if reg.SpeciesID == nil {
		add(domain.IssueSpeciesRequired, msgSpeciesRequired)
	}
	if reg.UserID == nil {
		add(domain.IssueUserRequired, msgUserRequired)
	}
	if reg.MunicipalityID == nil {
		add(domain.IssueMunicipalityRequired, msgMunicipalityRequired)
	}
	if reg.Location != nil && reg.Location.Kind != domain.LocationPark && reg.Location.Kind != domain.LocationStreet {
		add(domain.IssueInvalidLocation, msgInvalidLocation)
	}
	if len(issues) > 0 {
		return "", &domain.InvalidInputError{Issues: issues}
	}

	if _, ok := graph.FindTreeStatus(*reg.StatusID); !ok {
		add(domain.IssueStatusMissing, msgStatusMissing)
	}
	if _, ok := graph.FindSpecies(*reg.SpeciesID); !ok {
		add(domain.IssueSpeciesMissing, msgSpeciesMissing)
	}
	if _, ok := graph.FindUser(*reg.UserID); !ok {
		add(domain.IssueUserMissing, msgUserMissing)
	}
	if _, ok := graph.FindMunicipality(*reg.MunicipalityID); !ok {
		add(domain.IssueMunicipalityMissing, msgMunicipalityMissing)
	}
	if reg.Location != nil {
		switch reg.Location.Kind {
		case domain.LocationPark:
			if _, ok := graph.FindPark(reg.Location.ID); !ok {
				add(domain.IssueParkMissing, msgParkMissing)
			}
		case domain.LocationStreet:
			if _, ok := graph.FindStreet(reg.Location.ID); !ok {
				add(domain.IssueStreetMissing, msgStreetMissing)
			}
		}
	}
	if len(issues) > 0 {
		return "", &domain.InvalidInputError{Issues: issues}
	}
	return description, nil
}
