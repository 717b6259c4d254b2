package roleassign

import (
	"context"
	"errors"
	"fmt"

	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/apperr"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/claims"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/database"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/models"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/roles"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/supporters"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/internal/users"
	"github.com/chinesefoodonline/chinesefoodonline/backend/go-services/pkg/metrics"
)

// Assignable role values accepted at the service boundary.
const (
	AssignAdmin          = "admin"
	AssignSupporterOwner = "supporterOwner"
)

// SessionRevoker invalidates a user's refresh sessions so the next token
// carries fresh claims. Satisfied by *sessions.Service.
type SessionRevoker interface {
	RevokeAllForSub(ctx context.Context, sub string) error
}

// Service is the only writer of role fields and supporter ownership. All
// dependencies are injected; there is no ambient store or verifier.
type Service struct {
	users      users.UserRepository
	supporters supporters.Repository
	mirror     claims.Mirror
	sessions   SessionRevoker
	tx         database.TxRunner
}

func NewService(u users.UserRepository, s supporters.Repository, m claims.Mirror, rev SessionRevoker, tx database.TxRunner) *Service {
	return &Service{users: u, supporters: s, mirror: m, sessions: rev, tx: tx}
}

// AssignInput is one role assignment request.
type AssignInput struct {
	UID               string   `json:"uid"`
	Role              string   `json:"role"`
	SupporterRole     string   `json:"supporterRole,omitempty"`
	OwnedSupporterIDs []string `json:"ownedSupporterIds,omitempty"`
}

// Assign validates the caller's authority and writes the requested role to
// the target user record, mirroring the result into the claims cache and
// revoking the target's sessions. callerSub must come from a freshly
// verified token; the caller's authority is re-derived from the role store,
// never from client-supplied claims.
//
// Repeating a call with identical arguments converges to the same end
// state. The returned string is a human-readable confirmation.
func (s *Service) Assign(ctx context.Context, callerSub string, in AssignInput) (string, error) {
	if callerSub == "" {
		metrics.RoleAssignments.WithLabelValues("unauthenticated").Inc()
		return "", apperr.Wrap(apperr.ErrUnauthenticated, "authentication required")
	}
	if err := validateInput(in); err != nil {
		metrics.RoleAssignments.WithLabelValues("invalid").Inc()
		return "", err
	}

	caller, err := s.users.GetBySub(ctx, callerSub)
	if err != nil {
		return "", err
	}
	if caller == nil || !s.permitted(callerClaims(caller), in) {
		metrics.GuardDenials.Inc()
		metrics.RoleAssignments.WithLabelValues("denied").Inc()
		// reveal nothing about why
		return "", apperr.Wrap(apperr.ErrPermissionDenied, "not permitted")
	}

	target, err := s.users.GetBySub(ctx, in.UID)
	if err != nil {
		return "", err
	}
	if target == nil {
		metrics.RoleAssignments.WithLabelValues("not_found").Inc()
		return "", apperr.Wrap(apperr.ErrNotFound, "user %s", in.UID)
	}

	// finish the write-set even if the caller disconnects; a transfer must
	// never commit one side only
	wctx := context.WithoutCancel(ctx)

	var final *models.User
	err = s.tx.RunInTx(wctx, func(txCtx context.Context) error {
		var txErr error
		switch in.Role {
		case AssignAdmin:
			final, txErr = s.assignAdmin(txCtx, target)
		case AssignSupporterOwner:
			final, txErr = s.assignSupporterOwner(txCtx, target, in)
		}
		return txErr
	})
	if err != nil {
		if apperr.Kind(err) == nil {
			metrics.RoleAssignments.WithLabelValues("error").Inc()
		}
		return "", err
	}

	if err := s.mirror.Set(wctx, callerClaims(final)); err != nil {
		return "", fmt.Errorf("mirror claims for %s: %w", final.Sub, err)
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAllForSub(wctx, final.Sub); err != nil {
			return "", fmt.Errorf("revoke sessions for %s: %w", final.Sub, err)
		}
	}

	metrics.RoleAssignments.WithLabelValues("ok").Inc()
	return fmt.Sprintf("assigned role %s to user %s", in.Role, in.UID), nil
}

func validateInput(in AssignInput) error {
	if in.UID == "" {
		return apperr.Wrap(apperr.ErrInvalidArgument, "uid is required")
	}
	switch in.Role {
	case AssignAdmin:
		return nil
	case AssignSupporterOwner:
		if len(in.OwnedSupporterIDs) == 0 {
			return apperr.Wrap(apperr.ErrInvalidArgument, "ownedSupporterIds required for role %s", in.Role)
		}
		// only owners carry an owned list; manager/employee records never do
		if in.SupporterRole != "" && in.SupporterRole != string(roles.SupporterOwner) {
			return apperr.Wrap(apperr.ErrInvalidArgument, "supporterRole must be %q for role %s", roles.SupporterOwner, in.Role)
		}
		return nil
	}
	return apperr.Wrap(apperr.ErrInvalidArgument, "unknown role %q", in.Role)
}

// permitted evaluates the access guard against the caller's authoritative
// record. For ownership assignments every concerned entity must pass.
func (s *Service) permitted(caller roles.Claims, in AssignInput) bool {
	if in.Role == AssignAdmin {
		return roles.CanAssignRole(caller, roles.RoleAdmin, "")
	}
	for _, slug := range in.OwnedSupporterIDs {
		if !roles.CanAssignRole(caller, roles.RoleSupporter, slug) {
			return false
		}
	}
	return true
}

// assignAdmin promotes the target to admin. Any supporter entities the
// target owned are released first so the ownership invariant holds.
func (s *Service) assignAdmin(ctx context.Context, target *models.User) (*models.User, error) {
	for _, slug := range target.OwnedSupporterIDs {
		if err := s.supporters.SetOwner(ctx, slug, ""); err != nil && !errors.Is(err, supporters.ErrNotFound) {
			return nil, err
		}
	}
	if err := s.users.UpdateRoles(ctx, target.Sub, string(roles.RoleAdmin), "", nil); err != nil {
		return nil, err
	}
	return s.users.GetBySub(ctx, target.Sub)
}

// assignSupporterOwner makes the target the single owner of each listed
// entity: the slug is stripped from the previous owner before the target
// gains it, inside the same transaction.
func (s *Service) assignSupporterOwner(ctx context.Context, target *models.User, in AssignInput) (*models.User, error) {
	// validateInput guarantees the sub-role is owner (or empty)
	supporterRole := string(roles.SupporterOwner)

	for _, slug := range in.OwnedSupporterIDs {
		sp, err := s.supporters.GetBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, supporters.ErrNotFound) {
				return nil, apperr.Wrap(apperr.ErrNotFound, "supporter %q", slug)
			}
			return nil, err
		}
		if sp.OwnerUserID == target.Sub {
			continue // already owned by the target; idempotent repeat
		}
		if sp.OwnerUserID != "" {
			if err := s.releaseFromOwner(ctx, sp.OwnerUserID, slug); err != nil {
				return nil, err
			}
		}
		if err := s.supporters.SetOwner(ctx, slug, target.Sub); err != nil {
			return nil, err
		}
	}

	newOwned := mergeSlugs(target.OwnedSupporterIDs, in.OwnedSupporterIDs)
	if err := s.users.UpdateRoles(ctx, target.Sub, string(roles.RoleSupporter), supporterRole, newOwned); err != nil {
		return nil, err
	}
	return s.users.GetBySub(ctx, target.Sub)
}

// releaseFromOwner removes slug from the previous owner's list. When the
// list empties the previous owner reverts to a plain user.
func (s *Service) releaseFromOwner(ctx context.Context, ownerSub, slug string) error {
	prev, err := s.users.GetBySub(ctx, ownerSub)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil // dangling owner reference; entity side is rewritten below
	}
	remaining := make([]string, 0, len(prev.OwnedSupporterIDs))
	for _, id := range prev.OwnedSupporterIDs {
		if id != slug {
			remaining = append(remaining, id)
		}
	}
	role := prev.Role
	supporterRole := prev.SupporterRole
	if len(remaining) == 0 {
		role = string(roles.RoleUser)
		supporterRole = ""
	}
	if err := s.users.UpdateRoles(ctx, prev.Sub, role, supporterRole, remaining); err != nil {
		return err
	}
	if err := s.mirror.Invalidate(ctx, prev.Sub); err != nil {
		return err
	}
	if s.sessions != nil {
		return s.sessions.RevokeAllForSub(ctx, prev.Sub)
	}
	return nil
}

// mergeSlugs appends additions to existing, preserving order and dropping
// duplicates.
func mergeSlugs(existing, additions []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]bool, len(out))
	for _, id := range out {
		seen[id] = true
	}
	for _, id := range additions {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func callerClaims(u *models.User) roles.Claims {
	return roles.Claims{
		Sub:               u.Sub,
		Role:              roles.Role(u.Role),
		SupporterRole:     roles.SupporterRole(u.SupporterRole),
		OwnedSupporterIDs: u.OwnedSupporterIDs,
	}
}

// OwnerInfo is the result of a supporter owner lookup.
type OwnerInfo struct {
	SupporterID string              `json:"supporterId"`
	OwnerUserID string              `json:"ownerUserId,omitempty"`
	Owner       *models.UserSummary `json:"owner,omitempty"`
}

// GetSupporterOwner resolves the current owner of a supporter entity.
// Read-only.
func (s *Service) GetSupporterOwner(ctx context.Context, supporterID string) (*OwnerInfo, error) {
	sp, err := s.supporters.GetBySlug(ctx, supporterID)
	if err != nil {
		if errors.Is(err, supporters.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "supporter %q", supporterID)
		}
		return nil, err
	}
	info := &OwnerInfo{SupporterID: sp.Slug, OwnerUserID: sp.OwnerUserID}
	if sp.OwnerUserID != "" {
		owner, err := s.users.GetBySub(ctx, sp.OwnerUserID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			sum := owner.Summary()
			info.Owner = &sum
		}
	}
	return info, nil
}
