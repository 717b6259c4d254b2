package supporters

import "time"

// Supporter is one business listing in the directory. The slug is the
// primary key, chosen at creation and immutable afterwards.
type Supporter struct {
	Slug        string    `json:"slug" bson:"slug"`
	OwnerUserID string    `json:"ownerUserId,omitempty" bson:"ownerUserId,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
	Phone       string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Hours       string    `json:"hours,omitempty" bson:"hours,omitempty"`
	ImageKey    string    `json:"imageKey,omitempty" bson:"imageKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
