package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sushihentaime/blogsphere/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrAuthenticationFailure = fmt.Errorf("unauthorized access")
)

func NewUserService(db *mongo.Database, mb common.MessageProducer, c *common.Cache, logger *slog.Logger) *UserService {
	return &UserService{
		m:      NewUserModel(db),
		mb:     mb,
		c:      c,
		logger: logger,
	}
}

// CreateUser creates a new user account and publishes a user.created event
// carrying the activation token.
func (s *UserService) CreateUser(ctx context.Context, name, username, email, password string) (*User, error) {
	name = strings.TrimSpace(name)

	v := common.NewValidator()
	validateName(v, name)
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Name:     name,
		Username: username,
		Email:    email,
	}

	// Set the password hash
	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = s.m.insert(ctx, &u)
	if err != nil {
		return nil, err
	}

	token, err := s.m.createToken(ctx, u.ID, ActivationTokenTime, TokenScopeActivate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Email string
		Name  string
		Token string
	}{
		Email: u.Email,
		Name:  u.Name,
		Token: token.Plain,
	}

	emailData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	err = s.mb.Publish(ctx, emailData, common.UserCreatedKey, common.UserExchange)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.String("user_id", u.ID.Hex()), slog.String("username", u.Username))

	return &u, nil
}

// ActivateUser verifies the account owning the activation token, grants it
// blog:write and consumes the token.
func (s *UserService) ActivateUser(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByToken(ctx, TokenScopeActivate, hashToken(token))
	if err != nil {
		return nil, err
	}

	err = s.m.activate(ctx, user.ID, user.Version, PermissionWriteBlog)
	if err != nil {
		return nil, err
	}

	if _, err := s.m.deleteTokens(ctx, user.ID, TokenScopeActivate); err != nil {
		return nil, err
	}

	return s.m.getByID(ctx, user.ID)
}

// LoginUser checks the credentials and issues a new access token.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*Token, *User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	user, err := s.m.getByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			burnPasswordCheck(password)
			return nil, nil, ErrAuthenticationFailure
		default:
			return nil, nil, err
		}
	}

	ok, err := user.Password.matches(password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrAuthenticationFailure
	}

	token, err := s.m.createToken(ctx, user.ID, AccessTokenTime, TokenScopeAuth)
	if err != nil {
		return nil, nil, err
	}

	return token, user, nil
}

// GetUserByAccessToken resolves a bearer token. Results are cached for a
// minute.
func (s *UserService) GetUserByAccessToken(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	hash := hashToken(token)
	key := common.CacheKeyUserByAccessToken(hash)

	if cached, ok := s.c.Get(key); ok {
		if u, ok := cached.(*User); ok {
			return u, nil
		}
	}

	user, err := s.m.getUserByToken(ctx, TokenScopeAuth, hash)
	if err != nil {
		return nil, err
	}

	s.c.Set(key, user, userCacheTime)

	return user, nil
}

// LogoutUser revokes every access token of the user.
func (s *UserService) LogoutUser(ctx context.Context, userID primitive.ObjectID) error {
	n, err := s.m.deleteTokens(ctx, userID, TokenScopeAuth)
	if err != nil {
		return err
	}

	s.c.DeleteFunc(func(key string, value interface{}) bool {
		u, ok := value.(*User)
		return ok && u.ID == userID
	})

	s.logger.Info("user logged out", slog.String("user_id", userID.Hex()), slog.Int64("tokens", n))

	return nil
}

// GetProfile returns the caller's own profile with drafts included.
func (s *UserService) GetProfile(ctx context.Context, id primitive.ObjectID) (*Profile, error) {
	return s.m.getProfile(ctx, bson.M{"_id": id}, profileView{ownBlogs: true, includeDrafts: true})
}

// GetPublicProfile returns what other people may see of a user. Liked and
// saved lists are only shown when the user allows it. The user's own blogs
// are left to the caller.
func (s *UserService) GetPublicProfile(ctx context.Context, username string) (*Profile, error) {
	p, err := s.m.getProfile(ctx, bson.M{"username": username}, profileView{})
	if err != nil {
		return nil, err
	}

	p.Email = ""
	if !p.ShowLikedBlogs {
		p.LikedBlogs = nil
	}
	if !p.ShowSavedBlogs {
		p.SavedBlogs = nil
	}

	return p, nil
}

// UpdateSettings changes profile fields and display preferences.
func (s *UserService) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings Settings) (*Profile, error) {
	v := common.NewValidator()
	validateSettings(v, settings)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.updateSettings(ctx, id, settings); err != nil {
		return nil, err
	}

	// cached users would otherwise keep the old preferences for a minute
	s.c.DeleteFunc(func(key string, value interface{}) bool {
		u, ok := value.(*User)
		return ok && u.ID == id
	})

	return s.GetProfile(ctx, id)
}

func (u *User) IsAnonymous() bool {
	return u == AnonymousUser
}

func (u *User) IsActivated() bool {
	return u.Activated
}

func (u *User) HasPermission(permission Permission) bool {
	return u.Permissions.Include(permission)
}
