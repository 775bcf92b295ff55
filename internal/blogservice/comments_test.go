package blogservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeComments struct {
	comments map[primitive.ObjectID]Comment
	users    map[primitive.ObjectID]Creator
	batches  int
	lookups  int
}

func newFakeComments() *fakeComments {
	return &fakeComments{
		comments: make(map[primitive.ObjectID]Comment),
		users:    make(map[primitive.ObjectID]Creator),
	}
}

func (f *fakeComments) add(user primitive.ObjectID, replies ...primitive.ObjectID) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.comments[id] = Comment{ID: id, UserID: user, Text: "c", ReplyIDs: replies}
	return id
}

func (f *fakeComments) commentsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Comment, error) {
	f.batches++
	var out []Comment
	for _, id := range ids {
		if c, ok := f.comments[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeComments) usersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Creator, error) {
	f.lookups++
	out := make(map[primitive.ObjectID]Creator)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func TestAssembleCommentsNested(t *testing.T) {
	src := newFakeComments()
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	src.users[alice] = Creator{ID: alice, Username: "alice"}
	src.users[bob] = Creator{ID: bob, Username: "bob"}

	leaf := src.add(alice)
	level2 := src.add(bob, leaf)
	second := src.add(alice)
	level1 := src.add(alice, level2, second)
	root := src.add(bob, level1)
	other := src.add(alice)

	c := src.comments[root]
	c.Likes = []primitive.ObjectID{alice}
	src.comments[root] = c

	tree, err := assembleComments(context.Background(), src, []primitive.ObjectID{root, other})
	require.NoError(t, err)

	require.Len(t, tree, 2)
	assert.Equal(t, root, tree[0].ID)
	assert.Equal(t, other, tree[1].ID)
	assert.Equal(t, "bob", tree[0].User.Username)
	assert.Equal(t, []Creator{{ID: alice, Username: "alice"}}, tree[0].LikedBy)

	l1 := tree[0].Replies[0]
	require.Len(t, l1.Replies, 2)
	assert.Equal(t, level2, l1.Replies[0].ID)
	assert.Equal(t, second, l1.Replies[1].ID)

	l3 := l1.Replies[0].Replies
	require.Len(t, l3, 1)
	assert.Equal(t, "alice", l3[0].User.Username)
	assert.NotNil(t, l3[0].Replies)
	assert.Empty(t, l3[0].Replies)

	// one query per level plus one for the users
	assert.Equal(t, 4, src.batches)
	assert.Equal(t, 1, src.lookups)
}

func TestAssembleCommentsCycleAndDangling(t *testing.T) {
	src := newFakeComments()
	user := primitive.NewObjectID()

	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	missing := primitive.NewObjectID()
	src.comments[a] = Comment{ID: a, UserID: user, ReplyIDs: []primitive.ObjectID{b, missing}}
	src.comments[b] = Comment{ID: b, UserID: user, ReplyIDs: []primitive.ObjectID{a}}

	tree, err := assembleComments(context.Background(), src, []primitive.ObjectID{a, missing})
	require.NoError(t, err)

	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, b, tree[0].Replies[0].ID)
	assert.Empty(t, tree[0].Replies[0].Replies)
}

func TestAssembleCommentsEmpty(t *testing.T) {
	tree, err := assembleComments(context.Background(), newFakeComments(), nil)
	require.NoError(t, err)
	assert.Empty(t, tree)
}
