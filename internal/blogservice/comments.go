package blogservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Comment struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	BlogID    primitive.ObjectID   `json:"blog" bson:"blog"`
	UserID    primitive.ObjectID   `json:"-" bson:"user"`
	User      *Creator             `json:"user,omitempty" bson:"-"`
	Text      string               `json:"comment" bson:"comment"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	LikedBy   []Creator            `json:"likedBy,omitempty" bson:"-"`
	ReplyIDs  []primitive.ObjectID `json:"-" bson:"replies"`
	Replies   []*Comment           `json:"replies" bson:"-"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
}

// commentSource is what the tree assembler reads from. Both lookups are
// batched.
type commentSource interface {
	commentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Comment, error)
	usersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Creator, error)
}

// assembleComments resolves the reply trees under roots. Comments are loaded
// level by level into an arena, one query per level, then every author and
// liker is resolved in a single query. Replies keep their stored order.
// Dangling ids are skipped and a comment reachable twice is linked only once,
// so a cycle cannot loop.
func assembleComments(ctx context.Context, src commentSource, roots []primitive.ObjectID) ([]*Comment, error) {
	arena := make(map[primitive.ObjectID]*Comment)

	frontier := roots
	for len(frontier) > 0 {
		var missing []primitive.ObjectID
		queued := make(map[primitive.ObjectID]bool)
		for _, id := range frontier {
			if _, ok := arena[id]; ok || queued[id] {
				continue
			}
			queued[id] = true
			missing = append(missing, id)
		}
		if len(missing) == 0 {
			break
		}

		level, err := src.commentsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}

		frontier = nil
		for i := range level {
			c := &level[i]
			arena[c.ID] = c
			frontier = append(frontier, c.ReplyIDs...)
		}
	}

	var userIDs []primitive.ObjectID
	for _, c := range arena {
		userIDs = append(userIDs, c.UserID)
		userIDs = append(userIDs, c.Likes...)
	}
	users, err := src.usersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	linked := make(map[primitive.ObjectID]bool, len(arena))
	tree := make([]*Comment, 0, len(roots))
	var stack []*Comment

	for _, id := range roots {
		root, ok := arena[id]
		if !ok || linked[id] {
			continue
		}
		linked[id] = true
		tree = append(tree, root)
		stack = append(stack, root)

		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			resolveUsers(c, users)

			c.Replies = make([]*Comment, 0, len(c.ReplyIDs))
			for _, rid := range c.ReplyIDs {
				child, ok := arena[rid]
				if !ok || linked[rid] {
					continue
				}
				linked[rid] = true
				c.Replies = append(c.Replies, child)
				stack = append(stack, child)
			}
		}
	}

	return tree, nil
}

func resolveUsers(c *Comment, users map[primitive.ObjectID]Creator) {
	if u, ok := users[c.UserID]; ok {
		c.User = &u
	}
	c.LikedBy = make([]Creator, 0, len(c.Likes))
	for _, id := range c.Likes {
		if u, ok := users[id]; ok {
			c.LikedBy = append(c.LikedBy, u)
		}
	}
}

func (m *BlogModel) commentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Comment, error) {
	cur, err := m.comments.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var comments []Comment
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (m *BlogModel) usersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Creator, error) {
	users := make(map[primitive.ObjectID]Creator)
	if len(ids) == 0 {
		return users, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "username": 1, "email": 1, "profilePic": 1})
	cur, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u Creator
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}

	return users, cur.Err()
}

func (m *BlogModel) getComment(ctx context.Context, id primitive.ObjectID) (*Comment, error) {
	var c Comment
	err := m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &c, nil
}

// insertComment stores c and appends it to the reply list of parent, or to
// the blog's top-level comments when parent is nil.
func (m *BlogModel) insertComment(ctx context.Context, c *Comment, parent *primitive.ObjectID) error {
	c.Likes = []primitive.ObjectID{}
	c.ReplyIDs = []primitive.ObjectID{}

	res, err := m.comments.InsertOne(ctx, c)
	if err != nil {
		return err
	}
	c.ID = res.InsertedID.(primitive.ObjectID)

	if parent != nil {
		_, err = m.comments.UpdateByID(ctx, *parent, bson.M{"$push": bson.M{"replies": c.ID}})
	} else {
		_, err = m.blogs.UpdateByID(ctx, c.BlogID, bson.M{"$push": bson.M{"comments": c.ID}})
	}
	if err != nil {
		_, _ = m.comments.DeleteOne(ctx, bson.M{"_id": c.ID})
		return err
	}

	return nil
}

// descendants returns id and the ids of every reply below it.
func (m *BlogModel) descendants(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	all := []primitive.ObjectID{id}
	seen := map[primitive.ObjectID]bool{id: true}

	frontier := []primitive.ObjectID{id}
	for len(frontier) > 0 {
		level, err := m.commentsByIDs(ctx, frontier)
		if err != nil {
			return nil, err
		}

		frontier = nil
		for _, c := range level {
			for _, rid := range c.ReplyIDs {
				if seen[rid] {
					continue
				}
				seen[rid] = true
				all = append(all, rid)
				frontier = append(frontier, rid)
			}
		}
	}

	return all, nil
}

func (m *BlogModel) deleteComments(ctx context.Context, blogID primitive.ObjectID, root primitive.ObjectID, ids []primitive.ObjectID) error {
	if _, err := m.comments.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return err
	}
	if _, err := m.comments.UpdateMany(ctx, bson.M{"replies": root}, bson.M{"$pull": bson.M{"replies": root}}); err != nil {
		return err
	}
	_, err := m.blogs.UpdateByID(ctx, blogID, bson.M{"$pull": bson.M{"comments": root}})
	return err
}

func (s *BlogService) withUser(ctx context.Context, c *Comment) error {
	users, err := s.m.usersByIDs(ctx, append([]primitive.ObjectID{c.UserID}, c.Likes...))
	if err != nil {
		return err
	}
	resolveUsers(c, users)
	if c.Replies == nil {
		c.Replies = []*Comment{}
	}
	return nil
}

// AddComment adds a top-level comment to a published blog.
func (s *BlogService) AddComment(ctx context.Context, blogID, userID primitive.ObjectID, text string) (*Comment, error) {
	v := common.NewValidator()
	validateComment(v, text)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if _, err := s.m.findOne(ctx, bson.M{"_id": blogID, "draft": false}); err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, common.NewError(common.ErrRecordNotFound, "Blog does not exist or is a draft", err)
		}
		return nil, err
	}

	c := &Comment{
		BlogID:    blogID,
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		CreatedAt: s.now(),
	}
	if err := s.m.insertComment(ctx, c, nil); err != nil {
		return nil, common.NewError(common.ErrPersistenceFailed, "Error adding comment", err)
	}

	return c, s.withUser(ctx, c)
}

// AddReply answers an existing comment.
func (s *BlogService) AddReply(ctx context.Context, parentID, userID primitive.ObjectID, text string) (*Comment, error) {
	v := common.NewValidator()
	validateComment(v, text)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	parent, err := s.m.getComment(ctx, parentID)
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, common.NewError(common.ErrRecordNotFound, "Comment does not exist", err)
		}
		return nil, err
	}

	c := &Comment{
		BlogID:    parent.BlogID,
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		CreatedAt: s.now(),
	}
	if err := s.m.insertComment(ctx, c, &parent.ID); err != nil {
		return nil, common.NewError(common.ErrPersistenceFailed, "Error adding reply", err)
	}

	return c, s.withUser(ctx, c)
}

// ToggleCommentLike likes or unlikes a comment for userID.
func (s *BlogService) ToggleCommentLike(ctx context.Context, commentID, userID primitive.ObjectID) (bool, *Comment, error) {
	added, err := toggle(ctx, s.m.comments, nil, commentID, userID, engagement{blogField: "likes"}, nil)
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return false, nil, common.NewError(common.ErrRecordNotFound, "Comment does not exist", err)
		}
		return false, nil, err
	}

	c, err := s.m.getComment(ctx, commentID)
	if err != nil {
		return false, nil, err
	}

	return added, c, s.withUser(ctx, c)
}

// DeleteComment removes a comment and every reply below it. The comment's
// author and the blog's creator may delete it.
func (s *BlogService) DeleteComment(ctx context.Context, commentID, requesterID primitive.ObjectID) error {
	c, err := s.m.getComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return common.NewError(common.ErrRecordNotFound, "Comment does not exist", err)
		}
		return err
	}

	if c.UserID != requesterID {
		blog, err := s.m.findOne(ctx, bson.M{"_id": c.BlogID})
		if err != nil && !errors.Is(err, common.ErrRecordNotFound) {
			return err
		}
		if blog == nil || blog.CreatorID != requesterID {
			return common.NewError(common.ErrForbidden, "You are not authorized for this action", nil)
		}
	}

	ids, err := s.m.descendants(ctx, c.ID)
	if err != nil {
		return err
	}

	if err := s.m.deleteComments(ctx, c.BlogID, c.ID, ids); err != nil {
		return common.NewError(common.ErrPersistenceFailed, "Error deleting comment", err)
	}

	return nil
}
