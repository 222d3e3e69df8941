package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"treeregistry/pkg/domain"
)

const (
	msgCredentialsRequired = "Please enter a username and password"
	msgWrongPassword       = "Please re-enter your password"
	msgUsernameNotFound    = "username not found"
	msgUsernameTaken       = "username already exists, please try another one"
)

// Login returns the user whose username matches exactly and whose password
// matches the stored hash.
func (s *Service) Login(ctx context.Context, username, password string) (domain.User, error) {
	var user domain.User
	err := s.run(ctx, opLogin, func(context.Context) (string, error) {
		if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
			return "", domain.NewInvalidInput(domain.IssueCredentials, msgCredentialsRequired)
		}
		found, ok := findUserByName(s.store.ListUsers(), username)
		if !ok {
			return "", domain.NewInvalidInput(domain.IssueUsernameNotFound, msgUsernameNotFound)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return found.ID, domain.NewInvalidInput(domain.IssueWrongPassword, msgWrongPassword)
			}
			return found.ID, fmt.Errorf("compare password for %s: %w", found.ID, err)
		}
		user = found
		return found.ID, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Register creates a user with a bcrypt password hash. Usernames are unique
// and compared case-sensitively.
func (s *Service) Register(ctx context.Context, username, password string, isScientist bool) (domain.User, error) {
	var created domain.User
	err := s.run(ctx, opRegister, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
			return "", domain.NewInvalidInput(domain.IssueCredentials, msgCredentialsRequired)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		role := domain.RoleRegular
		if isScientist {
			role = domain.RoleScientist
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, taken := findUserByName(tx.Snapshot().ListUsers(), username); taken {
				return domain.NewInvalidInput(domain.IssueUsernameTaken, msgUsernameTaken)
			}
			var err error
			created, err = tx.CreateUser(domain.User{Username: username, PasswordHash: string(hash), Role: role})
			return err
		})
		return created.ID, err
	})
	if err != nil {
		return domain.User{}, err
	}
	return created, nil
}

func findUserByName(users []domain.User, username string) (domain.User, bool) {
	for _, u := range users {
		if u.Username == username {
			return u, true
		}
	}
	return domain.User{}, false
}
