package blogservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errDuplicateSlug = errors.New("duplicate blog slug")

type BlogModel struct {
	blogs    *mongo.Collection
	users    *mongo.Collection
	comments *mongo.Collection
}

func newBlogModel(db *mongo.Database) *BlogModel {
	return &BlogModel{
		blogs:    db.Collection(common.BlogCollection),
		users:    db.Collection(common.UserCollection),
		comments: db.Collection(common.CommentCollection),
	}
}

func (m *BlogModel) insert(ctx context.Context, b *Blog) error {
	if b.LikedBy == nil {
		b.LikedBy = []primitive.ObjectID{}
	}
	if b.SavedBy == nil {
		b.SavedBy = []primitive.ObjectID{}
	}
	if b.CommentIDs == nil {
		b.CommentIDs = []primitive.ObjectID{}
	}
	b.Version = 1

	res, err := m.blogs.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateSlug
		}
		return err
	}

	b.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// removeBlog undoes an insert whose follow-up writes failed.
func (m *BlogModel) removeBlog(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.blogs.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *BlogModel) countCreatedSince(ctx context.Context, creator primitive.ObjectID, since time.Time) (int64, error) {
	return m.blogs.CountDocuments(ctx, bson.M{
		"creator":   creator,
		"createdAt": bson.M{"$gte": since},
	})
}

func (m *BlogModel) userExists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := m.users.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *BlogModel) addToCreator(ctx context.Context, userID, blogID primitive.ObjectID) error {
	res, err := m.users.UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"blogs": blogID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.ErrRecordNotFound
	}
	return nil
}

// findOne returns the stored document without joining its creator.
func (m *BlogModel) findOne(ctx context.Context, filter bson.M) (*Blog, error) {
	var b Blog
	err := m.blogs.FindOne(ctx, filter).Decode(&b)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &b, nil
}

// list runs q and returns the requested page plus the total number of matches.
func (m *BlogModel) list(ctx context.Context, q *blogQuery) ([]Blog, int64, error) {
	cur, err := m.blogs.Aggregate(ctx, q.pipeline())
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var res []struct {
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
		Blogs []Blog `bson:"blogs"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return nil, 0, err
	}

	blogs := []Blog{}
	var total int64
	if len(res) > 0 {
		if res[0].Blogs != nil {
			blogs = res[0].Blogs
		}
		if len(res[0].Total) > 0 {
			total = res[0].Total[0].N
		}
	}

	return blogs, total, nil
}

// first returns the newest blog matching q with its creator joined.
func (m *BlogModel) first(ctx context.Context, q *blogQuery) (*Blog, error) {
	blogs, _, err := m.list(ctx, q.page(1, 1))
	if err != nil {
		return nil, err
	}
	if len(blogs) == 0 {
		return nil, common.ErrRecordNotFound
	}
	return &blogs[0], nil
}

// update writes the editable fields of b. It fails with ErrEditConflict when
// the stored version moved on since b was read.
func (m *BlogModel) update(ctx context.Context, b *Blog) error {
	filter := bson.M{"_id": b.ID, "version": b.Version}
	update := bson.M{
		"$set": bson.M{
			"title":       b.Title,
			"description": b.Description,
			"content":     b.Content,
			"tag":         b.Tag,
			"draft":       b.Draft,
			"image":       b.Image,
			"imageId":     b.ImageID,
			"updatedAt":   b.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := m.blogs.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.ErrEditConflict
	}

	b.Version++
	return nil
}

// deleteCascade removes the blog, every reference users hold to it and all
// of its comments, replies included. The steps are not transactional.
func (m *BlogModel) deleteCascade(ctx context.Context, b *Blog) error {
	res, err := m.blogs.DeleteOne(ctx, bson.M{"_id": b.ID})
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrRecordNotFound
	}

	_, err = m.users.UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{"blogs": b.ID},
			bson.M{"likedBlogs": b.ID},
			bson.M{"savedBlogs": b.ID},
		}},
		bson.M{"$pull": bson.M{"blogs": b.ID, "likedBlogs": b.ID, "savedBlogs": b.ID}},
	)
	if err != nil {
		return fmt.Errorf("pull blog references: %w", err)
	}

	if _, err := m.comments.DeleteMany(ctx, bson.M{"blog": b.ID}); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}

	return nil
}
