package core

import "treeregistry/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in graph policies.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewTreeMeasurementsRule())
	engine.Register(NewUniqueUsernameRule())
	engine.Register(NewTreeLocationLinkRule())
	return engine
}
