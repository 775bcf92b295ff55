package userservice

import (
	"log/slog"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type tokenScope string

const (
	TokenScopeActivate tokenScope = "activation"
	TokenScopeAuth     tokenScope = "authentication"

	ActivationTokenTime time.Duration = 3 * 24 * time.Hour
	AccessTokenTime     time.Duration = 7 * 24 * time.Hour

	// userCacheTime bounds how long a revoked token keeps working on other instances.
	userCacheTime time.Duration = time.Minute
)

var (
	AnonymousUser = &User{}
)

type UserService struct {
	m      *UserModel
	mb     common.MessageProducer
	c      *common.Cache
	logger *slog.Logger
}

type UserModel struct {
	users  *mongo.Collection
	tokens *mongo.Collection
}

type User struct {
	ID             primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name"`
	Username       string               `json:"username" bson:"username"`
	Email          string               `json:"email" bson:"email"`
	Password       Password             `json:"-" bson:"password"`
	Bio            string               `json:"bio" bson:"bio"`
	ProfilePic     string               `json:"profilePic" bson:"profilePic"`
	Activated      bool                 `json:"isVerified" bson:"isVerified"`
	Permissions    Permissions          `json:"permissions" bson:"permissions"`
	Blogs          []primitive.ObjectID `json:"-" bson:"blogs"`
	LikedBlogs     []primitive.ObjectID `json:"-" bson:"likedBlogs"`
	SavedBlogs     []primitive.ObjectID `json:"-" bson:"savedBlogs"`
	ShowLikedBlogs bool                 `json:"showLikedBlogs" bson:"showLikedBlogs"`
	ShowSavedBlogs bool                 `json:"showSavedBlogs" bson:"showSavedBlogs"`
	ShowDraftBlogs bool                 `json:"showDraftBlogs" bson:"showDraftBlogs"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
	Version        int                  `json:"-" bson:"version"`
}

type Password struct {
	Plain string `json:"-" bson:"-"`
	Hash  []byte `json:"-" bson:"hash"`
}

type Token struct {
	Plain  string             `json:"token" bson:"-"`
	Hash   []byte             `json:"-" bson:"hash"`
	UserID primitive.ObjectID `json:"-" bson:"userId"`
	Expiry time.Time          `json:"expiry" bson:"expiry"`
	Scope  tokenScope         `json:"-" bson:"scope"`
}

// Profile is a user with their blog lists resolved.
type Profile struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id"`
	Name           string             `json:"name" bson:"name"`
	Username       string             `json:"username" bson:"username"`
	Email          string             `json:"email,omitempty" bson:"email"`
	Bio            string             `json:"bio" bson:"bio"`
	ProfilePic     string             `json:"profilePic" bson:"profilePic"`
	Activated      bool               `json:"isVerified" bson:"isVerified"`
	ShowLikedBlogs bool               `json:"showLikedBlogs" bson:"showLikedBlogs"`
	ShowSavedBlogs bool               `json:"showSavedBlogs" bson:"showSavedBlogs"`
	ShowDraftBlogs bool               `json:"showDraftBlogs" bson:"showDraftBlogs"`
	Blogs          []BlogSummary      `json:"blogs" bson:"blogs"`
	LikedBlogs     []BlogSummary      `json:"likedBlogs,omitempty" bson:"likedBlogs"`
	SavedBlogs     []BlogSummary      `json:"savedBlogs,omitempty" bson:"savedBlogs"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

type BlogSummary struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	BlogID      string             `json:"blogId" bson:"blogId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	Image       string             `json:"image" bson:"image"`
	Tag         []string           `json:"tag" bson:"tag"`
	Draft       bool               `json:"draft" bson:"draft"`
	Creator     *CreatorSummary    `json:"creator,omitempty" bson:"author,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

type CreatorSummary struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Username   string             `json:"username" bson:"username"`
	ProfilePic string             `json:"profilePic" bson:"profilePic"`
}

// Settings holds the profile fields a user may change. Nil fields are left alone.
type Settings struct {
	Name           *string `json:"name"`
	Bio            *string `json:"bio"`
	ProfilePic     *string `json:"profilePic"`
	ShowLikedBlogs *bool   `json:"showLikedBlogs"`
	ShowSavedBlogs *bool   `json:"showSavedBlogs"`
	ShowDraftBlogs *bool   `json:"showDraftBlogs"`
}
