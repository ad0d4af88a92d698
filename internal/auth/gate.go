package auth

import (
	"context"

	"github.com/alumni-connect/apiserver/types"
)

// RoleSet is an immutable set of roles permitted on a route.
type RoleSet struct {
	roles map[types.Role]struct{}
}

// Roles builds a RoleSet from roles.
func Roles(roles ...types.Role) RoleSet {
	set := RoleSet{roles: make(map[types.Role]struct{}, len(roles))}
	for _, role := range roles {
		set.roles[role] = struct{}{}
	}
	return set
}

// Contains reports whether role is in the set. An empty set contains nothing.
func (s RoleSet) Contains(role types.Role) bool {
	_, ok := s.roles[role]
	return ok
}

// Authorize checks the identity in ctx against allowed.
func Authorize(ctx context.Context, allowed RoleSet) error {
	id, ok := FromContext(ctx)
	if !ok {
		return fail(ErrUnauthenticated, "identity_missing", nil)
	}
	if !allowed.Contains(id.Role) {
		return fail(ErrForbidden, "role_not_allowed", nil)
	}
	return nil
}
