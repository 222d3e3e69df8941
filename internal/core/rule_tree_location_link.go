package core

import (
	"context"
	"fmt"

	"treeregistry/pkg/domain"
)

// NewTreeLocationLinkRule blocks commits where a tree points at a location
// that is missing or belongs to another tree.
func NewTreeLocationLinkRule() domain.Rule {
	return treeLocationLinkRule{}
}

type treeLocationLinkRule struct{}

type locationFinder interface {
	FindTreeLocation(id string) (domain.TreeLocation, bool)
}

func (treeLocationLinkRule) Name() string { return "tree_location_link" }

func (treeLocationLinkRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	locations, ok := view.(locationFinder)
	if !ok {
		return domain.Result{}, nil
	}
	res := domain.Result{}
	for _, tree := range view.ListTrees() {
		if tree.LocationID == nil {
			continue
		}
		var msg string
		loc, found := locations.FindTreeLocation(*tree.LocationID)
		switch {
		case !found:
			msg = fmt.Sprintf("tree %s references missing location %s", tree.ID, *tree.LocationID)
		case loc.TreeID != tree.ID:
			msg = fmt.Sprintf("tree %s references location %s owned by tree %s", tree.ID, loc.ID, loc.TreeID)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "tree_location_link",
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityTree,
			EntityID: tree.ID,
		})
	}
	return res, nil
}
