package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput matches every input validation and lookup failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound matches lookups of records absent from the graph.
	ErrNotFound = errors.New("not found")
	// ErrUnsupported matches operations that are declared but not yet supported.
	ErrUnsupported = errors.New("operation not supported")
)

// IssueCode identifies a violated input rule.
type IssueCode string

// Input rule identifiers, in the order the registration validator evaluates them.
const (
	IssueNegativeInteger      IssueCode = "negative_integer"
	IssueFuturePlanting       IssueCode = "future_planting"
	IssueStatusRequired       IssueCode = "status_required"
	IssueSpeciesRequired      IssueCode = "species_required"
	IssueUserRequired         IssueCode = "user_required"
	IssueMunicipalityRequired IssueCode = "municipality_required"
	IssueStatusMissing        IssueCode = "status_missing"
	IssueSpeciesMissing       IssueCode = "species_missing"
	IssueUserMissing          IssueCode = "user_missing"
	IssueMunicipalityMissing  IssueCode = "municipality_missing"
	IssueParkMissing          IssueCode = "park_missing"
	IssueStreetMissing        IssueCode = "street_missing"

	IssueEmptyList         IssueCode = "empty_list"
	IssueNullList          IssueCode = "null_list"
	IssueNullEntry         IssueCode = "null_entry"
	IssueUnresolvedTree    IssueCode = "unresolved_tree"
	IssueCredentials       IssueCode = "credentials_required"
	IssueWrongPassword     IssueCode = "wrong_password"
	IssueUsernameNotFound  IssueCode = "username_not_found"
	IssueUsernameTaken     IssueCode = "username_taken"
	IssueNameRequired      IssueCode = "name_required"
	IssueInvalidStatus     IssueCode = "invalid_status"
	IssueInvalidLocation   IssueCode = "invalid_location"
	IssueNegativeAttribute IssueCode = "negative_attribute"
)

// Issue is one violated input rule together with its human-readable message.
type Issue struct {
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

// InvalidInputError reports one or more violated input rules. Error joins the
// messages with single spaces, in evaluation order.
type InvalidInputError struct {
	Issues []Issue
}

// NewInvalidInput builds an error carrying a single issue.
func NewInvalidInput(code IssueCode, message string) *InvalidInputError {
	return &InvalidInputError{Issues: []Issue{{Code: code, Message: message}}}
}

func (e *InvalidInputError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.Message)
	}
	return strings.TrimSpace(strings.Join(msgs, " "))
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// Codes returns the violated rule identifiers in evaluation order.
func (e *InvalidInputError) Codes() []IssueCode {
	out := make([]IssueCode, 0, len(e.Issues))
	for _, issue := range e.Issues {
		out = append(out, issue.Code)
	}
	return out
}

// Has reports whether the error carries the given rule identifier.
func (e *InvalidInputError) Has(code IssueCode) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

// NotFoundError is returned when a lookup by identifier finds nothing.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is matches both ErrNotFound and ErrInvalidInput; a failed lookup is also bad input.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrInvalidInput
}

// UnsupportedOperationError marks an operation that exists in the API but has no semantics yet.
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, ErrUnsupported)
}

// Is lets errors.Is match ErrUnsupported.
func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }
