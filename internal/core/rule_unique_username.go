package core

import (
	"context"
	"fmt"

	"treeregistry/pkg/domain"
)

// NewUniqueUsernameRule blocks commits that leave two users sharing a username.
func NewUniqueUsernameRule() domain.Rule {
	return uniqueUsernameRule{}
}

type uniqueUsernameRule struct{}

func (uniqueUsernameRule) Name() string { return "unique_username" }

func (uniqueUsernameRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]string)
	res := domain.Result{}
	for _, user := range view.ListUsers() {
		first, dup := seen[user.Username]
		if !dup {
			seen[user.Username] = user.ID
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "unique_username",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("username %q used by %s and %s", user.Username, first, user.ID),
			Entity:   domain.EntityUser,
			EntityID: user.ID,
		})
	}
	return res, nil
}
