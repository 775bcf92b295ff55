package blogservice

import (
	"context"
	"errors"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// engagement names a set on the blog and its mirror on the user.
type engagement struct {
	blogField string
	userField string
}

var (
	likes = engagement{blogField: "likedBy", userField: "likedBlogs"}
	saves = engagement{blogField: "savedBy", userField: "savedBlogs"}
)

// toggleAttempts bounds retries when concurrent toggles keep flipping the set
// between our two conditional updates.
const toggleAttempts = 3

// toggle adds userID to the blog's set when absent and removes it otherwise.
// Each direction is one conditional update, so a repeated toggle by the same
// user can never be lost.
func toggle(ctx context.Context, coll *mongo.Collection, users *mongo.Collection, id, userID primitive.ObjectID, e engagement, scope bson.M) (bool, error) {
	for attempt := 0; attempt < toggleAttempts; attempt++ {
		filter := withScope(bson.M{"_id": id, e.blogField: bson.M{"$ne": userID}}, scope)
		res, err := coll.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{e.blogField: userID}})
		if err != nil {
			return false, err
		}
		if res.MatchedCount == 1 {
			return true, mirror(ctx, users, userID, id, e.userField, "$addToSet")
		}

		filter = withScope(bson.M{"_id": id, e.blogField: userID}, scope)
		res, err = coll.UpdateOne(ctx, filter, bson.M{"$pull": bson.M{e.blogField: userID}})
		if err != nil {
			return false, err
		}
		if res.MatchedCount == 1 {
			return false, mirror(ctx, users, userID, id, e.userField, "$pull")
		}

		n, err := coll.CountDocuments(ctx, withScope(bson.M{"_id": id}, scope))
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, common.ErrRecordNotFound
		}
	}

	return false, common.ErrEditConflict
}

func withScope(filter, scope bson.M) bson.M {
	for k, v := range scope {
		filter[k] = v
	}
	return filter
}

func mirror(ctx context.Context, users *mongo.Collection, userID, id primitive.ObjectID, field, op string) error {
	if users == nil || field == "" {
		return nil
	}
	_, err := users.UpdateByID(ctx, userID, bson.M{op: bson.M{field: id}})
	return err
}

func (s *BlogService) toggleEngagement(ctx context.Context, blogID, userID primitive.ObjectID, e engagement) (*Engagement, error) {
	added, err := toggle(ctx, s.m.blogs, s.m.users, blogID, userID, e, bson.M{"draft": false})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, common.NewError(common.ErrRecordNotFound, "Blog does not exist or is a draft", err)
		default:
			return nil, err
		}
	}

	blog, err := s.m.first(ctx, newBlogQuery().where("_id", blogID))
	if err != nil {
		return nil, err
	}

	return &Engagement{Added: added, Blog: blog}, nil
}

// ToggleLike likes a published blog for userID, or unlikes it if already liked.
func (s *BlogService) ToggleLike(ctx context.Context, blogID, userID primitive.ObjectID) (*Engagement, error) {
	return s.toggleEngagement(ctx, blogID, userID, likes)
}

// ToggleSave saves a published blog for userID, or removes it from the saved list.
func (s *BlogService) ToggleSave(ctx context.Context, blogID, userID primitive.ObjectID) (*Engagement, error) {
	return s.toggleEngagement(ctx, blogID, userID, saves)
}
