package userservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrNotFound          = errors.New("user not found")
)

func NewUserModel(db *mongo.Database) *UserModel {
	return &UserModel{
		users:  db.Collection(common.UserCollection),
		tokens: db.Collection(common.TokenCollection),
	}
}

func (m *UserModel) insert(ctx context.Context, u *User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Version = 1
	u.Permissions = Permissions{}
	u.Blogs = []primitive.ObjectID{}
	u.LikedBlogs = []primitive.ObjectID{}
	u.SavedBlogs = []primitive.ObjectID{}

	res, err := m.users.InsertOne(ctx, u)
	if err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "uniq_username"):
			return ErrDuplicateUsername
		case mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "uniq_email"):
			return ErrDuplicateEmail
		default:
			return err
		}
	}

	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (m *UserModel) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var u User
	err := m.users.FindOne(ctx, filter).Decode(&u)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func (m *UserModel) getByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *UserModel) getByUsername(ctx context.Context, username string) (*User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

// updateSettings applies the non-nil fields of s.
func (m *UserModel) updateSettings(ctx context.Context, id primitive.ObjectID, s Settings) error {
	set := bson.M{"updatedAt": time.Now()}
	if s.Name != nil {
		set["name"] = strings.TrimSpace(*s.Name)
	}
	if s.Bio != nil {
		set["bio"] = strings.TrimSpace(*s.Bio)
	}
	if s.ProfilePic != nil {
		set["profilePic"] = *s.ProfilePic
	}
	if s.ShowLikedBlogs != nil {
		set["showLikedBlogs"] = *s.ShowLikedBlogs
	}
	if s.ShowSavedBlogs != nil {
		set["showSavedBlogs"] = *s.ShowSavedBlogs
	}
	if s.ShowDraftBlogs != nil {
		set["showDraftBlogs"] = *s.ShowDraftBlogs
	}

	res, err := m.users.UpdateByID(ctx, id, bson.M{"$set": set, "$inc": bson.M{"version": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// blogLookup joins the blogs referenced by field, newest first, each with its
// creator. Drafts are dropped unless includeDrafts is set.
func blogLookup(field string, includeDrafts bool) bson.D {
	var inner bson.A
	if !includeDrafts {
		inner = append(inner, bson.M{"$match": bson.M{"draft": false}})
	}
	inner = append(inner,
		bson.M{"$sort": bson.D{{Key: "createdAt", Value: -1}}},
		bson.M{"$lookup": bson.M{
			"from":         common.UserCollection,
			"localField":   "creator",
			"foreignField": "_id",
			"as":           "author",
			"pipeline":     bson.A{bson.M{"$project": bson.M{"name": 1, "username": 1, "profilePic": 1}}},
		}},
		bson.M{"$unwind": bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}},
		bson.M{"$project": bson.M{"content": 0, "likedBy": 0, "savedBy": 0, "comments": 0}},
	)

	return bson.D{{Key: "$lookup", Value: bson.M{
		"from":         common.BlogCollection,
		"localField":   field,
		"foreignField": "_id",
		"as":           field,
		"pipeline":     inner,
	}}}
}

type profileView struct {
	ownBlogs      bool
	includeDrafts bool
}

// getProfile loads the user matching filter with their blog lists resolved.
func (m *UserModel) getProfile(ctx context.Context, filter bson.M, view profileView) (*Profile, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$project", Value: bson.M{"password": 0}}},
		blogLookup("likedBlogs", false),
		blogLookup("savedBlogs", false),
	}
	if view.ownBlogs {
		pipeline = append(pipeline, blogLookup("blogs", view.includeDrafts))
	}

	cur, err := m.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrNotFound
	}

	p := &profiles[0]
	if !view.ownBlogs {
		p.Blogs = nil
	}
	return p, nil
}
