package core

import (
	"context"
	"fmt"
	"strings"

	"treeregistry/pkg/domain"
)

const (
	msgNameRequired      = "Name cannot be empty!"
	msgNegativeAttribute = "Species attributes cannot be negative!"
)

// CreateTree validates reg, then creates the tree and its location in one
// transaction. The returned tree carries the new location's ID.
func (s *Service) CreateTree(ctx context.Context, reg TreeRegistration) (domain.Tree, error) {
	var created domain.Tree
	err := s.run(ctx, opCreateTree, func(ctx context.Context) (string, error) {
		dateAdded := s.now()
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			description, err := ValidateTreeRegistration(tx.Snapshot(), reg, dateAdded)
			if err != nil {
				return err
			}
			tree, err := tx.CreateTree(domain.Tree{
				Height:         reg.Height,
				Diameter:       reg.Diameter,
				DatePlanted:    reg.DatePlanted,
				DateAdded:      dateAdded,
				StatusID:       *reg.StatusID,
				SpeciesID:      *reg.SpeciesID,
				UserID:         *reg.UserID,
				MunicipalityID: *reg.MunicipalityID,
			})
			if err != nil {
				return err
			}
			location := domain.TreeLocation{
				X:           reg.X,
				Y:           reg.Y,
				Description: description,
				TreeID:      tree.ID,
			}
			if reg.Location != nil {
				location.Kind = reg.Location.Kind
				location.PlaceID = reg.Location.ID
			}
			if _, err := tx.CreateTreeLocation(location); err != nil {
				return err
			}
			linked, ok := tx.Snapshot().FindTree(tree.ID)
			if !ok {
				return fmt.Errorf("tree %s vanished after location link", tree.ID)
			}
			created = linked
			return nil
		})
		return created.ID, err
	})
	if err != nil {
		return domain.Tree{}, err
	}
	return created, nil
}

// RemoveTree deletes a tree together with its location.
func (s *Service) RemoveTree(ctx context.Context, id string) error {
	return s.run(ctx, opRemoveTree, func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.Snapshot().FindTree(id); !ok {
				return domain.NotFoundError{Entity: domain.EntityTree, ID: id}
			}
			return tx.DeleteTree(id)
		})
		return id, err
	})
}

// CreateSpecies registers a species with its per-tree contributions.
func (s *Service) CreateSpecies(ctx context.Context, name string, carbonConsumption, oxygenProduction int) (domain.Species, error) {
	var created domain.Species
	err := s.run(ctx, opCreateSpecies, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(name) == "" {
			return "", domain.NewInvalidInput(domain.IssueNameRequired, msgNameRequired)
		}
		if carbonConsumption < 0 || oxygenProduction < 0 {
			return "", domain.NewInvalidInput(domain.IssueNegativeAttribute, msgNegativeAttribute)
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateSpecies(domain.Species{
				Name:              name,
				CarbonConsumption: carbonConsumption,
				OxygenProduction:  oxygenProduction,
			})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.Species{}, err
	}
	return created, nil
}

// CreateMunicipality registers a municipality. An empty id is generated.
func (s *Service) CreateMunicipality(ctx context.Context, name, id string) (domain.Municipality, error) {
	var created domain.Municipality
	err := s.run(ctx, opCreateMunicipality, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(name) == "" {
			return id, domain.NewInvalidInput(domain.IssueNameRequired, msgNameRequired)
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateMunicipality(domain.Municipality{Base: domain.Base{ID: id}, Name: name})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.Municipality{}, err
	}
	return created, nil
}

// CreateTreeStatus adds a status record carrying one of the canonical values.
func (s *Service) CreateTreeStatus(ctx context.Context, status domain.Status) (domain.TreeStatus, error) {
	var created domain.TreeStatus
	err := s.run(ctx, opCreateTreeStatus, func(ctx context.Context) (string, error) {
		if !status.Valid() {
			return "", domain.NewInvalidInput(domain.IssueInvalidStatus, fmt.Sprintf("Unknown tree status %q", status))
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateTreeStatus(domain.TreeStatus{Status: status})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.TreeStatus{}, err
	}
	return created, nil
}

// CreatePark registers a park trees can be located in.
func (s *Service) CreatePark(ctx context.Context, name string) (domain.Park, error) {
	var created domain.Park
	err := s.run(ctx, opCreatePark, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(name) == "" {
			return "", domain.NewInvalidInput(domain.IssueNameRequired, msgNameRequired)
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreatePark(domain.Park{Name: name})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.Park{}, err
	}
	return created, nil
}

// CreateStreet registers a street trees can be located on.
func (s *Service) CreateStreet(ctx context.Context, name string) (domain.Street, error) {
	var created domain.Street
	err := s.run(ctx, opCreateStreet, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(name) == "" {
			return "", domain.NewInvalidInput(domain.IssueNameRequired, msgNameRequired)
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			created, err = tx.CreateStreet(domain.Street{Name: name})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.Street{}, err
	}
	return created, nil
}

// EnsureDefaultStatuses seeds every canonical status that has no record yet
// and returns the records it created. A fully seeded graph is left untouched.
func (s *Service) EnsureDefaultStatuses(ctx context.Context) ([]domain.TreeStatus, error) {
	present := make(map[domain.Status]bool)
	for _, st := range s.store.ListTreeStatuses() {
		present[st.Status] = true
	}
	var missing []domain.Status
	for _, st := range domain.CanonicalStatuses() {
		if !present[st] {
			missing = append(missing, st)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	var created []domain.TreeStatus
	err := s.run(ctx, opEnsureStatuses, func(ctx context.Context) (string, error) {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created = created[:0]
			for _, st := range missing {
				rec, err := tx.CreateTreeStatus(domain.TreeStatus{Status: st})
				if err != nil {
					return err
				}
				created = append(created, rec)
			}
			return nil
		})
		return "", err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
