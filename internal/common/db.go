package common

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	BlogCollection    = "blogs"
	UserCollection    = "users"
	CommentCollection = "comments"
	TokenCollection   = "tokens"
)

func NewDB(uri, name string, maxPoolSize uint64, maxIdleTime time.Duration) (*mongo.Database, error) {
	client, err := connectDB(uri, maxPoolSize, maxIdleTime)
	if err != nil {
		return nil, err
	}

	return client.Database(name), nil
}

// connectDB connects to the database and returns the client
func connectDB(uri string, maxPoolSize uint64, maxIdleTime time.Duration) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetMaxConnIdleTime(maxIdleTime).
		// nested documents decode to bson.M so free-form block data renders as JSON objects
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

// CloseDB closes the database connection
func CloseDB(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.Client().Disconnect(ctx)
}

// MigrateDB applies the index migrations found at source (e.g. "file://migrations")
// to the database addressed by dsn. The dsn must include the database name.
func MigrateDB(source, dsn string) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// DatabaseURI adds the database name to a connection string that has none.
func DatabaseURI(uri, name string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Path != "" && u.Path != "/" {
		return "", fmt.Errorf("connection string already names a database: %s", u.Path)
	}
	u.Path = "/" + name
	return u.String(), nil
}
