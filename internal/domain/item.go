package domain

import (
	"fmt"
	"strings"
)

// ItemRole represents the catalog role of an upsert request.
type ItemRole string

const (
	RoleFamily ItemRole = "FAMILY"
	RoleOption ItemRole = "OPTION"
)

func (r ItemRole) String() string { return string(r) }

func (r ItemRole) IsValid() bool {
	switch r {
	case RoleFamily, RoleOption:
		return true
	}
	return false
}

func ParseItemRoleFromString(s string) (ItemRole, error) {
	role := ItemRole(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", fmt.Errorf("%w: invalid item role %q", ErrValidation, s)
	}
	return role, nil
}

// ItemUpsertRequest is the catalog-facing shape of one transformed row.
// Instances are never mutated after creation; the update path pairs a
// request with an ExistingItemRef instead.
type ItemUpsertRequest struct {
	Name        string
	Description string
	FederatedID string
	Role        ItemRole
}

func (i ItemUpsertRequest) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(i.FederatedID) == "" {
		return fmt.Errorf("%w: federated id is required", ErrValidation)
	}
	if !i.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, i.Role)
	}
	return nil
}

// ExistingItemRef pairs a federated id with the catalog's internal id.
// It lives only for the duration of one chunk reconciliation.
type ExistingItemRef struct {
	FederatedID string
	InternalID  string
}

// ExistingItemRefsToMap indexes lookup results by federated id. Later
// entries win on duplicates, matching catalog lookup semantics.
func ExistingItemRefsToMap(refs []ExistingItemRef) map[string]string {
	existing := make(map[string]string, len(refs))
	for _, ref := range refs {
		existing[ref.FederatedID] = ref.InternalID
	}
	return existing
}

// ItemUpdate is an upsert request routed to the update path together
// with its resolved internal id.
type ItemUpdate struct {
	Item       ItemUpsertRequest
	InternalID string
}
