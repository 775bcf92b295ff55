package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, msg []byte, key common.BindingKey, exchange common.Exchange) error {
	args := m.Called(msg, key, exchange)
	return args.Error(0)
}

const testPassword = "TestPassword123!"

func setupTestEnvironment(t *testing.T) (*UserService, *mongo.Database, *mockProducer, func()) {
	db := common.TestDB("file://../../migrations", t)
	mb := new(mockProducer)
	c := common.NewCache(5*time.Minute, 10*time.Minute)
	s := NewUserService(db, mb, c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cleanup := func() {
		ctx := context.Background()
		for _, name := range []string{common.UserCollection, common.TokenCollection, common.BlogCollection} {
			_, err := db.Collection(name).DeleteMany(ctx, bson.M{})
			require.NoError(t, err)
		}
		c.Flush()
		mb.ExpectedCalls = nil
		mb.Calls = nil
	}

	return s, db, mb, cleanup
}

// activeUser registers and activates a user, returning a fresh access token.
func activeUser(t *testing.T, s *UserService, mb *mockProducer, username string) (*User, string) {
	t.Helper()
	ctx := context.Background()

	mb.On("Publish", mock.Anything, common.UserCreatedKey, common.UserExchange).Return(nil)

	u, err := s.CreateUser(ctx, "Test User", username, username+"@example.com", testPassword)
	require.NoError(t, err)

	activation, err := s.m.createToken(ctx, u.ID, ActivationTokenTime, TokenScopeActivate)
	require.NoError(t, err)
	_, err = s.ActivateUser(ctx, activation.Plain)
	require.NoError(t, err)

	token, user, err := s.LoginUser(ctx, username, testPassword)
	require.NoError(t, err)

	return user, token.Plain
}

func TestCreateUser(t *testing.T) {
	s, db, mb, cleanup := setupTestEnvironment(t)
	ctx := context.Background()

	t.Run("valid user", func(t *testing.T) {
		defer cleanup()
		mb.On("Publish", mock.Anything, common.UserCreatedKey, common.UserExchange).Return(nil).Once()

		u, err := s.CreateUser(ctx, " Test User ", "testuser", "testuser@example.com", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "Test User", u.Name)
		assert.False(t, u.Activated)

		n, err := db.Collection(common.TokenCollection).CountDocuments(ctx, bson.M{"userId": u.ID, "scope": TokenScopeActivate})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		var event struct {
			Email string
			Name  string
			Token string
		}
		msg := mb.Calls[0].Arguments.Get(0).([]byte)
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, "testuser@example.com", event.Email)
		assert.Len(t, event.Token, 26)
	})

	t.Run("duplicates", func(t *testing.T) {
		defer cleanup()
		mb.On("Publish", mock.Anything, common.UserCreatedKey, common.UserExchange).Return(nil)

		_, err := s.CreateUser(ctx, "A", "taken", "a@example.com", testPassword)
		require.NoError(t, err)

		_, err = s.CreateUser(ctx, "B", "taken", "b@example.com", testPassword)
		assert.ErrorIs(t, err, ErrDuplicateUsername)

		_, err = s.CreateUser(ctx, "C", "other", "a@example.com", testPassword)
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("invalid payload", func(t *testing.T) {
		defer cleanup()

		_, err := s.CreateUser(ctx, "", "", "", "")
		var verr common.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Errors, 4)

		n, err := db.Collection(common.UserCollection).CountDocuments(ctx, bson.M{})
		require.NoError(t, err)
		assert.Zero(t, n)
		mb.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestActivateUser(t *testing.T) {
	s, db, mb, cleanup := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "invalid token", token: "invalid token", wantErr: true},
		{name: "empty token", token: "", wantErr: true},
		{name: "unknown token", token: "AAAAAAAAAAAAAAAAAAAAAAAAAA", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ActivateUser(ctx, tc.token)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		defer cleanup()
		mb.On("Publish", mock.Anything, common.UserCreatedKey, common.UserExchange).Return(nil)

		u, err := s.CreateUser(ctx, "Reader", "reader", "reader@example.com", testPassword)
		require.NoError(t, err)
		token, err := s.m.createToken(ctx, u.ID, ActivationTokenTime, TokenScopeActivate)
		require.NoError(t, err)

		activated, err := s.ActivateUser(ctx, token.Plain)
		require.NoError(t, err)
		assert.True(t, activated.IsActivated())
		assert.True(t, activated.HasPermission(PermissionWriteBlog))

		n, err := db.Collection(common.TokenCollection).CountDocuments(ctx, bson.M{"userId": u.ID})
		require.NoError(t, err)
		assert.Zero(t, n)

		_, err = s.ActivateUser(ctx, token.Plain)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoginLogout(t *testing.T) {
	s, _, mb, cleanup := setupTestEnvironment(t)
	ctx := context.Background()
	defer cleanup()

	user, token := activeUser(t, s, mb, "writer")

	_, _, err := s.LoginUser(ctx, "writer", "WrongPassword1!")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)
	_, _, err = s.LoginUser(ctx, "nobody", testPassword)
	assert.ErrorIs(t, err, ErrAuthenticationFailure)

	got, err := s.GetUserByAccessToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, cached := s.c.Get(common.CacheKeyUserByAccessToken(hashToken(token)))
	assert.True(t, cached)

	require.NoError(t, s.LogoutUser(ctx, user.ID))

	_, cached = s.c.Get(common.CacheKeyUserByAccessToken(hashToken(token)))
	assert.False(t, cached)

	_, err = s.GetUserByAccessToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfiles(t *testing.T) {
	s, db, mb, cleanup := setupTestEnvironment(t)
	ctx := context.Background()
	defer cleanup()

	user, _ := activeUser(t, s, mb, "profiled")

	published := bson.M{"blogId": "pub-1234567", "title": "Published", "creator": user.ID, "draft": false, "createdAt": time.Now()}
	draft := bson.M{"blogId": "draft-1234567", "title": "Draft", "creator": user.ID, "draft": true, "createdAt": time.Now()}
	res, err := db.Collection(common.BlogCollection).InsertMany(ctx, []any{published, draft})
	require.NoError(t, err)
	_, err = db.Collection(common.UserCollection).UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{
		"blogs":      res.InsertedIDs,
		"likedBlogs": res.InsertedIDs[:1],
		"savedBlogs": res.InsertedIDs[:1],
	}})
	require.NoError(t, err)

	own, err := s.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, own.Blogs, 2)
	require.Len(t, own.LikedBlogs, 1)
	assert.Equal(t, "profiled", own.LikedBlogs[0].Creator.Username)
	assert.Equal(t, "profiled@example.com", own.Email)

	public, err := s.GetPublicProfile(ctx, "profiled")
	require.NoError(t, err)
	assert.Empty(t, public.Email)
	assert.Nil(t, public.LikedBlogs)
	assert.Nil(t, public.SavedBlogs)
	assert.Nil(t, public.Blogs)

	show := true
	bio := "  writes about Go  "
	updated, err := s.UpdateSettings(ctx, user.ID, Settings{ShowLikedBlogs: &show, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "writes about Go", updated.Bio)
	assert.True(t, updated.ShowLikedBlogs)

	public, err = s.GetPublicProfile(ctx, "profiled")
	require.NoError(t, err)
	assert.Len(t, public.LikedBlogs, 1)
	assert.Nil(t, public.SavedBlogs)

	_, err = s.GetPublicProfile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
