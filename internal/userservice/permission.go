package userservice

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Permission string
type Permissions []Permission

const (
	PermissionWriteBlog Permission = "blog:write"
)

func (p Permissions) Include(permission Permission) bool {
	for _, have := range p {
		if have == permission {
			return true
		}
	}
	return false
}

// activate marks the account verified and grants permissions in one update.
// It fails with ErrNotFound when the user changed since it was read.
func (m *UserModel) activate(ctx context.Context, id primitive.ObjectID, version int, permissions ...Permission) error {
	res, err := m.users.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set":         bson.M{"isVerified": true},
			"$addToSet":    bson.M{"permissions": bson.M{"$each": permissions}},
			"$inc":         bson.M{"version": 1},
			"$currentDate": bson.M{"updatedAt": true},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}
