package core

import (
	"context"
	"io"

	"treeregistry/pkg/domain"
)

func (s *Service) unsupported(ctx context.Context, op, entityID string) error {
	return s.run(ctx, op, func(context.Context) (string, error) {
		return entityID, &domain.UnsupportedOperationError{Operation: op}
	})
}

// MarkDiseased will move a tree to the diseased status. Not supported yet.
func (s *Service) MarkDiseased(ctx context.Context, treeID string) (domain.Tree, error) {
	return domain.Tree{}, s.unsupported(ctx, opMarkDiseased, treeID)
}

// MarkToBeCut will flag a tree for cutting. Not supported yet.
func (s *Service) MarkToBeCut(ctx context.Context, treeID string) (domain.Tree, error) {
	return domain.Tree{}, s.unsupported(ctx, opMarkToBeCut, treeID)
}

// CalcChangeOxygenProd will project the oxygen impact of a change to trees.
// Not supported yet.
func (s *Service) CalcChangeOxygenProd(ctx context.Context, _ []*domain.Tree, _ string) (int, error) {
	return 0, s.unsupported(ctx, opCalcChangeOxygenProd, "")
}

// CalcChangeCarbonConsump will project the carbon impact of a change to
// trees. Not supported yet.
func (s *Service) CalcChangeCarbonConsump(ctx context.Context, _ []*domain.Tree, _ string) (int, error) {
	return 0, s.unsupported(ctx, opCalcChangeCarbonConsump, "")
}

// LoadFile will import trees from an uploaded file. Not supported yet.
func (s *Service) LoadFile(ctx context.Context, _ io.Reader) error {
	return s.unsupported(ctx, opLoadFile, "")
}

// UpdateTree will replace a tree's attributes. Not supported yet.
func (s *Service) UpdateTree(ctx context.Context, treeID string, _ TreeRegistration) (domain.Tree, error) {
	return domain.Tree{}, s.unsupported(ctx, opUpdateTree, treeID)
}
