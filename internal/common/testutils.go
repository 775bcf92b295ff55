package common

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestRabbitMQ(t *testing.T) string {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12.11-management-alpine", rabbitmq.WithAdminUsername("guest"), rabbitmq.WithAdminPassword("guest"))
	if err != nil {
		t.Fatalf("could not start rabbitmq container: %v", err)
	}

	connURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("could not get rabbitmq connection URL: %v", err)
	}

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("could not terminate container: %v", err)
		}
	})

	return connURL
}

// TestDB starts a MongoDB container, applies the migrations found at source and
// returns a handle on a fresh database. source is relative to the caller, e.g.
// "file://../../migrations".
func TestDB(source string, t *testing.T) *mongo.Database {
	ctx := context.Background()

	c, err := mongodb.Run(ctx, "mongo:7.0")
	if err != nil {
		t.Fatalf("could not start mongodb container: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("could not terminate container: %v", err)
		}
	})

	connURL, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	const name = "testdb"

	dsn, err := DatabaseURI(connURL, name)
	if err != nil {
		t.Fatalf("invalid connection string: %v", err)
	}

	if err := MigrateDB(source, dsn); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	db, err := NewDB(connURL, name, 10, 0)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = CloseDB(db)
	})

	return db
}
