package userservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newToken(userID primitive.ObjectID, ttl time.Duration, scope tokenScope) (*Token, error) {
	randomBytes := make([]byte, 16)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}

	token := &Token{
		Plain:  base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes),
		UserID: userID,
		Expiry: time.Now().Add(ttl),
		Scope:  scope,
	}

	token.Hash = hashToken(token.Plain)

	return token, nil
}

func (m *UserModel) createToken(ctx context.Context, userID primitive.ObjectID, ttl time.Duration, scope tokenScope) (*Token, error) {
	token, err := newToken(userID, ttl, scope)
	if err != nil {
		return nil, err
	}

	_, err = m.tokens.InsertOne(ctx, token)
	if err != nil {
		return nil, err
	}

	return token, nil
}

// getUserByToken returns the owner of an unexpired token. Expired tokens are
// also purged by the TTL index, but that runs only once a minute.
func (m *UserModel) getUserByToken(ctx context.Context, scope tokenScope, hash []byte) (*User, error) {
	var t Token
	err := m.tokens.FindOne(ctx, bson.M{
		"hash":   hash,
		"scope":  scope,
		"expiry": bson.M{"$gt": time.Now()},
	}).Decode(&t)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return m.getByID(ctx, t.UserID)
}

func (m *UserModel) deleteTokens(ctx context.Context, userID primitive.ObjectID, scope tokenScope) (int64, error) {
	res, err := m.tokens.DeleteMany(ctx, bson.M{"userId": userID, "scope": scope})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
