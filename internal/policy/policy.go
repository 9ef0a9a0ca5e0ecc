// Package policy holds the pure authorization predicates gating the
// enrollment routes. Each predicate re-resolves the caller's claimed username
// against the identity store instead of trusting the token claims alone, so a
// forged or stale payload whose username no longer maps to an account is
// rejected as unauthenticated.
package policy

import (
	"context"
	"errors"

	"semaphore/enrollment/internal/auth"
	"semaphore/enrollment/internal/model"
	"semaphore/enrollment/internal/store"
)

type Decision int

const (
	Allow Decision = iota
	// DenyUnauthenticated: no usable identity (missing claims, unknown
	// username, unknown role value). Maps to 401.
	DenyUnauthenticated
	// DenyUnauthorized: known account with the wrong role where the
	// original contract reports 401 rather than 403.
	DenyUnauthorized
	// DenyForbidden: known identity, insufficient scope. Maps to 403.
	DenyForbidden
)

// RequireAdmin allows only callers whose stored account is ADMIN. A known
// account with another role is DenyUnauthorized, which the HTTP layer maps to
// 401 to match the original contract.
func RequireAdmin(ctx context.Context, s store.IdentityStore, claims *auth.Claims) (Decision, error) {
	user, decision, err := resolveUser(ctx, s, claims)
	if decision != Allow || err != nil {
		return decision, err
	}
	if user.Role != model.RoleAdmin {
		return DenyUnauthorized, nil
	}
	return Allow, nil
}

// RequireSelfOrAdmin allows an ADMIN caller for any target, or a STUDENT
// caller whose claimed studentId matches the target. The ADMIN branch is
// checked first and short-circuits.
func RequireSelfOrAdmin(ctx context.Context, s store.IdentityStore, claims *auth.Claims, targetStudentID string) (Decision, error) {
	_, decision, err := resolveUser(ctx, s, claims)
	if decision != Allow || err != nil {
		return decision, err
	}
	if claims.Role == model.RoleAdmin {
		return Allow, nil
	}
	if claims.Role == model.RoleStudent && claims.StudentID == targetStudentID {
		return Allow, nil
	}
	return DenyForbidden, nil
}

// RequireSelfStudent allows only a STUDENT acting on their own studentId.
// ADMIN is never allowed here; a non-STUDENT stored role is
// DenyUnauthenticated (401), matching the original contract, while a STUDENT
// targeting someone else's record is DenyForbidden.
func RequireSelfStudent(ctx context.Context, s store.IdentityStore, claims *auth.Claims, targetStudentID string) (Decision, error) {
	user, decision, err := resolveUser(ctx, s, claims)
	if decision != Allow || err != nil {
		return decision, err
	}
	if user.Role != model.RoleStudent {
		return DenyUnauthenticated, nil
	}
	if claims.StudentID != targetStudentID {
		return DenyForbidden, nil
	}
	return Allow, nil
}

// resolveUser is the shared identity re-validation step: the claims must be
// present, carry a known role value, and name an account that still exists.
// Store faults are returned as errors for the caller to surface as internal.
func resolveUser(ctx context.Context, s store.IdentityStore, claims *auth.Claims) (model.User, Decision, error) {
	if claims == nil {
		return model.User{}, DenyUnauthenticated, nil
	}
	if !claims.Role.Valid() {
		return model.User{}, DenyUnauthenticated, nil
	}
	user, err := s.GetUser(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return model.User{}, DenyUnauthenticated, nil
		}
		return model.User{}, DenyUnauthenticated, err
	}
	return user, Allow, nil
}
