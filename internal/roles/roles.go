package roles

// Role is the closed set of top-level roles a user record can carry.
type Role string

const (
	RoleUser        Role = "user"
	RoleSupporter   Role = "supporter"
	RoleContributor Role = "contributor"
	RoleAdmin       Role = "admin"
)

// SupporterRole is the sub-role within a supporter business; meaningful only
// when the top-level role is RoleSupporter.
type SupporterRole string

const (
	SupporterOwner    SupporterRole = "owner"
	SupporterManager  SupporterRole = "manager"
	SupporterEmployee SupporterRole = "employee"
)

// IsValidRole reports whether s names a known top-level role.
func IsValidRole(s string) bool {
	switch Role(s) {
	case RoleUser, RoleSupporter, RoleContributor, RoleAdmin:
		return true
	}
	return false
}

// IsValidSupporterRole reports whether s names a known supporter sub-role.
func IsValidSupporterRole(s string) bool {
	switch SupporterRole(s) {
	case SupporterOwner, SupporterManager, SupporterEmployee:
		return true
	}
	return false
}

// Claims are the authorization attributes of an authenticated principal, as
// carried in a verified token or re-derived from the role store. They are a
// snapshot: the role store remains authoritative.
type Claims struct {
	Sub               string        `json:"sub"`
	Role              Role          `json:"role"`
	SupporterRole     SupporterRole `json:"supporterRole,omitempty"`
	OwnedSupporterIDs []string      `json:"ownedSupporterIds,omitempty"`
}

// OwnsSupporter reports whether the claims include ownership of the given
// supporter entity.
func (c Claims) OwnsSupporter(slug string) bool {
	for _, id := range c.OwnedSupporterIDs {
		if id == slug {
			return true
		}
	}
	return false
}

// CanAssignRole decides whether a caller may assign newRole to some target
// user, where supporterID is the supporter entity the assignment concerns
// (required whenever newRole implies supporter ownership).
//
// First match wins:
//  1. admins may assign anything;
//  2. a supporter owner may delegate supporter ownership, but only within
//     entities they already own;
//  3. everything else is denied, including an ownership assignment with no
//     supporterID (fail closed).
//
// This is a pure function with no side effects. The copy evaluated inside
// the role assignment service is the enforcing one; any copy used for UI
// gating is advisory only.
func CanAssignRole(caller Claims, newRole Role, supporterID string) bool {
	if caller.Role == RoleAdmin {
		return true
	}
	if newRole == RoleSupporter {
		if supporterID == "" {
			return false
		}
		return caller.Role == RoleSupporter &&
			caller.SupporterRole == SupporterOwner &&
			caller.OwnsSupporter(supporterID)
	}
	return false
}

// CanManageSupporter is the UI-gating predicate for supporter self-service
// (listing edits, image uploads): the entity's owner or an admin.
func CanManageSupporter(caller Claims, slug string) bool {
	if caller.Role == RoleAdmin {
		return true
	}
	return caller.Role == RoleSupporter &&
		caller.SupporterRole == SupporterOwner &&
		caller.OwnsSupporter(slug)
}

// FromClaimsMap extracts Claims from a verified token's claim map (the shape
// the auth middleware stores on the request context). Unknown or missing
// fields degrade to the zero value; callers relying on these claims for
// enforcement must re-derive authority from the role store instead.
func FromClaimsMap(m map[string]interface{}) Claims {
	c := Claims{}
	if s, ok := m["sub"].(string); ok {
		c.Sub = s
	}
	if s, ok := m["role"].(string); ok {
		c.Role = Role(s)
	}
	if s, ok := m["supporterRole"].(string); ok {
		c.SupporterRole = SupporterRole(s)
	}
	switch v := m["ownedSupporterIds"].(type) {
	case []string:
		c.OwnedSupporterIDs = append(c.OwnedSupporterIDs, v...)
	case []interface{}:
		for _, e := range v {
			if s, ok := e.(string); ok {
				c.OwnedSupporterIDs = append(c.OwnedSupporterIDs, s)
			}
		}
	}
	return c
}
