package core

import (
	"context"
	"fmt"

	"treeregistry/pkg/domain"
)

const (
	msgEnterTreeList = "Please enter a list of trees"
	msgNullList      = "List cannot be null"
	msgEmptyList     = "List cannot be empty"
	msgNullEntry     = "The list contains a null entry"

	// bioIndexPlaceholder and bioForecastPlaceholder are returned for any
	// valid input until the index and forecast models exist.
	bioIndexPlaceholder    = 8
	bioForecastPlaceholder = 6
)

// speciesSelector picks the per-tree contribution a calculator sums.
type speciesSelector func(domain.Species) int

func oxygenProduction(sp domain.Species) int  { return sp.OxygenProduction }
func carbonConsumption(sp domain.Species) int { return sp.CarbonConsumption }

// TotalOxygenProduction sums the oxygen production of the supplied trees.
// Cut trees contribute nothing and diseased trees contribute half, rounded down.
func (s *Service) TotalOxygenProduction(ctx context.Context, trees []*domain.Tree) (int, error) {
	return s.totalContribution(ctx, opTotalOxygen, trees, oxygenProduction)
}

// TotalCarbonConsumption sums the carbon consumption of the supplied trees
// with the same status weighting as TotalOxygenProduction.
func (s *Service) TotalCarbonConsumption(ctx context.Context, trees []*domain.Tree) (int, error) {
	return s.totalContribution(ctx, opTotalCarbon, trees, carbonConsumption)
}

func (s *Service) totalContribution(ctx context.Context, op string, trees []*domain.Tree, value speciesSelector) (int, error) {
	var total int
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if len(trees) == 0 {
			return "", domain.NewInvalidInput(domain.IssueEmptyList, msgEnterTreeList)
		}
		if err := checkEntries(trees); err != nil {
			return "", err
		}
		return "", s.store.View(ctx, func(view domain.TransactionView) error {
			sum, err := sumContributions(view, trees, value)
			total = sum
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func sumContributions(graph domain.RuleView, trees []*domain.Tree, value speciesSelector) (int, error) {
	total := 0
	for _, tree := range trees {
		status, ok := graph.FindTreeStatus(tree.StatusID)
		if !ok {
			return 0, unresolvedTree(tree, "status", tree.StatusID)
		}
		species, ok := graph.FindSpecies(tree.SpeciesID)
		if !ok {
			return 0, unresolvedTree(tree, "species", tree.SpeciesID)
		}
		switch status.Status {
		case domain.StatusCut:
			// gone
		case domain.StatusDiseased:
			total += value(species) / 2
		default:
			total += value(species)
		}
	}
	return total, nil
}

func unresolvedTree(tree *domain.Tree, field, id string) error {
	return domain.NewInvalidInput(domain.IssueUnresolvedTree,
		fmt.Sprintf("Tree %s references unknown %s %s", tree.ID, field, id))
}

// BioIndexCalculator validates trees and returns the biodiversity index.
func (s *Service) BioIndexCalculator(ctx context.Context, trees []*domain.Tree) (int, error) {
	return s.placeholder(ctx, opBioIndex, trees, bioIndexPlaceholder)
}

// BioForecast validates trees and returns the biodiversity forecast.
func (s *Service) BioForecast(ctx context.Context, trees []*domain.Tree) (int, error) {
	return s.placeholder(ctx, opBioForecast, trees, bioForecastPlaceholder)
}

func (s *Service) placeholder(ctx context.Context, op string, trees []*domain.Tree, value int) (int, error) {
	err := s.run(ctx, op, func(context.Context) (string, error) {
		return "", checkTreeList(trees)
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// checkTreeList applies the nil, empty and nil-entry policy shared by the
// index, forecast and statistics operations.
func checkTreeList(trees []*domain.Tree) error {
	if trees == nil {
		return domain.NewInvalidInput(domain.IssueNullList, msgNullList)
	}
	if len(trees) == 0 {
		return domain.NewInvalidInput(domain.IssueEmptyList, msgEmptyList)
	}
	return checkEntries(trees)
}

func checkEntries(trees []*domain.Tree) error {
	for _, tree := range trees {
		if tree == nil {
			return domain.NewInvalidInput(domain.IssueNullEntry, msgNullEntry)
		}
	}
	return nil
}
