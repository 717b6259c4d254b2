package users

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MigrateLegacyOwnership rewrites user documents still carrying the
// deprecated scalar ownedSupporterId field into the canonical
// ownedSupporterIds array shape. Safe to run repeatedly; returns the number
// of rewritten documents.
func MigrateLegacyOwnership(ctx context.Context, col *mongo.Collection) (int, error) {
	cur, err := col.Find(ctx, bson.M{"ownedSupporterId": bson.M{"$exists": true}})
	if err != nil {
		return 0, fmt.Errorf("legacy ownership scan: %w", err)
	}
	defer cur.Close(ctx)

	migrated := 0
	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return migrated, fmt.Errorf("legacy ownership decode: %w", err)
		}
		ids := d.OwnedSupporterIDs
		if len(ids) == 0 && d.LegacyOwnedID != "" {
			ids = []string{d.LegacyOwnedID}
		}
		update := bson.M{"$unset": bson.M{"ownedSupporterId": ""}}
		if len(ids) > 0 {
			update["$set"] = bson.M{"ownedSupporterIds": ids}
		}
		if _, err := col.UpdateOne(ctx, bson.M{"sub": d.Sub}, update); err != nil {
			return migrated, fmt.Errorf("legacy ownership rewrite for %s: %w", d.Sub, err)
		}
		migrated++
	}
	return migrated, cur.Err()
}
