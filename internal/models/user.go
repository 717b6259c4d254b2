package models

import "time"

// User is the authoritative role record for one identity-provider subject.
// Role fields are mutated only by the role assignment service; the owning
// user never writes them directly.
type User struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	Sub               string    `bson:"sub" json:"sub"` // OIDC subject, primary key
	Email             string    `bson:"email" json:"email"`
	Name              string    `bson:"name" json:"name"`
	Phone             string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Role              string    `bson:"role" json:"role"`
	SupporterRole     string    `bson:"supporterRole,omitempty" json:"supporterRole,omitempty"`
	OwnedSupporterIDs []string  `bson:"ownedSupporterIds,omitempty" json:"ownedSupporterIds,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OwnsSupporter reports whether the user currently administers the given
// supporter entity.
func (u *User) OwnsSupporter(slug string) bool {
	for _, id := range u.OwnedSupporterIDs {
		if id == slug {
			return true
		}
	}
	return false
}

// UserSummary is the reduced user shape returned by owner lookups.
type UserSummary struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Summary returns the reduced shape of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{Sub: u.Sub, Email: u.Email, Name: u.Name}
}
