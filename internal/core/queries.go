package core

import (
	"context"

	"treeregistry/pkg/domain"
)

// FindAllTrees returns every registered tree ordered by creation time.
func (s *Service) FindAllTrees(context.Context) ([]domain.Tree, error) {
	return s.store.ListTrees(), nil
}

// FindAllSpecies returns every species.
func (s *Service) FindAllSpecies(context.Context) ([]domain.Species, error) {
	return s.store.ListSpecies(), nil
}

// FindAllMunicipalities returns every municipality.
func (s *Service) FindAllMunicipalities(context.Context) ([]domain.Municipality, error) {
	return s.store.ListMunicipalities(), nil
}

// FindAllTreeStatuses returns every status record.
func (s *Service) FindAllTreeStatuses(context.Context) ([]domain.TreeStatus, error) {
	return s.store.ListTreeStatuses(), nil
}

// FindAllParks returns every park.
func (s *Service) FindAllParks(ctx context.Context) ([]domain.Park, error) {
	var parks []domain.Park
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		parks = view.ListParks()
		return nil
	})
	return parks, err
}

// FindAllStreets returns every street.
func (s *Service) FindAllStreets(ctx context.Context) ([]domain.Street, error) {
	var streets []domain.Street
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		streets = view.ListStreets()
		return nil
	})
	return streets, err
}

// GetTreesForMunicipality returns the trees registered in municipalityID.
func (s *Service) GetTreesForMunicipality(_ context.Context, municipalityID string) ([]domain.Tree, error) {
	return filterTrees(s.store.ListTrees(), func(t domain.Tree) bool {
		return t.MunicipalityID == municipalityID
	}), nil
}

// GetTreesForSpecies returns the trees of speciesID.
func (s *Service) GetTreesForSpecies(_ context.Context, speciesID string) ([]domain.Tree, error) {
	return filterTrees(s.store.ListTrees(), func(t domain.Tree) bool {
		return t.SpeciesID == speciesID
	}), nil
}

// GetTreeByID returns the tree with the given identifier or a NotFoundError.
func (s *Service) GetTreeByID(_ context.Context, id string) (domain.Tree, error) {
	tree, ok := s.store.GetTree(id)
	if !ok {
		return domain.Tree{}, domain.NotFoundError{Entity: domain.EntityTree, ID: id}
	}
	return tree, nil
}

// GetTreeLocation returns the location record with the given identifier.
func (s *Service) GetTreeLocation(ctx context.Context, id string) (domain.TreeLocation, error) {
	var (
		location domain.TreeLocation
		found    bool
	)
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		location, found = view.FindTreeLocation(id)
		return nil
	}); err != nil {
		return domain.TreeLocation{}, err
	}
	if !found {
		return domain.TreeLocation{}, domain.NotFoundError{Entity: domain.EntityTreeLocation, ID: id}
	}
	return location, nil
}

// FindTreeStatus returns the status record carrying value.
func (s *Service) FindTreeStatus(_ context.Context, value domain.Status) (domain.TreeStatus, error) {
	for _, st := range s.store.ListTreeStatuses() {
		if st.Status == value {
			return st, nil
		}
	}
	return domain.TreeStatus{}, domain.NotFoundError{Entity: domain.EntityTreeStatus, ID: string(value)}
}

// TreePointers adapts a slice of trees to the pointer form the calculators take.
func TreePointers(trees []domain.Tree) []*domain.Tree {
	out := make([]*domain.Tree, len(trees))
	for i := range trees {
		out[i] = &trees[i]
	}
	return out
}

func filterTrees(trees []domain.Tree, keep func(domain.Tree) bool) []domain.Tree {
	out := make([]domain.Tree, 0, len(trees))
	for _, t := range trees {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
