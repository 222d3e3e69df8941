package core

import (
	"context"
	"fmt"

	"treeregistry/pkg/domain"
)

// NewTreeMeasurementsRule blocks commits that write a tree with negative
// measurements or a planting date after its registration date.
func NewTreeMeasurementsRule() domain.Rule {
	return treeMeasurementsRule{}
}

type treeMeasurementsRule struct{}

func (treeMeasurementsRule) Name() string { return "tree_measurements" }

func (r treeMeasurementsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityTree || change.Action == domain.ActionDelete {
			continue
		}
		tree, ok := change.After.(domain.Tree)
		if !ok {
			continue
		}
		if tree.Height < 0 || tree.Diameter < 0 {
			res.Violations = append(res.Violations, r.violation(tree,
				fmt.Sprintf("tree %s has negative measurements: height %d diameter %d", tree.ID, tree.Height, tree.Diameter)))
		}
		if !tree.DateAdded.IsZero() && tree.DatePlanted.After(tree.DateAdded) {
			res.Violations = append(res.Violations, r.violation(tree,
				fmt.Sprintf("tree %s planted %s after it was added %s", tree.ID,
					tree.DatePlanted.Format("2006-01-02"), tree.DateAdded.Format("2006-01-02"))))
		}
	}
	return res, nil
}

func (r treeMeasurementsRule) violation(tree domain.Tree, msg string) domain.Violation {
	return domain.Violation{
		Rule:     r.Name(),
		Severity: domain.SeverityBlock,
		Message:  msg,
		Entity:   domain.EntityTree,
		EntityID: tree.ID,
	}
}
