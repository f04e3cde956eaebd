// Package mongotest connects tests to a real MongoDB. Tests using it are
// skipped unless TEST_MONGO_URI is set.
package mongotest

import (
	"context"
	"os"
	"receptionist/pkg/client"
	"receptionist/pkg/config"
	"receptionist/pkg/logger"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI       = "TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
)

type Helper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// New connects to TEST_MONGO_URI and creates a throwaway database that is
// dropped when the test finishes.
func New(t *testing.T) *Helper {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping MongoDB test", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "receptionist_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	h := &Helper{
		Client:   mongoClient,
		Database: mongoClient.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

// RequireReplicaSet skips the test unless the server can run transactions.
func (h *Helper) RequireReplicaSet(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var hello bson.M
	if err := h.Client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		t.Fatalf("failed to run hello: %v", err)
	}
	if _, ok := hello["setName"]; !ok {
		t.Skip("MongoDB is not a replica set, skipping transactional test")
	}
}

// Config returns a config wired to the helper database.
func (h *Helper) Config() *config.Config {
	return &config.Config{
		MongoDatabaseName: h.DBName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReservationTTL:    5 * time.Minute,
		SweepBatchSize:    500,
		Log:               logger.Discard(),
		Client:            &client.Client{Mongo: h.Client},
	}
}

func (h *Helper) CountDocuments(t *testing.T, collection string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := h.Database.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collection, err)
	}
	return count
}

func (h *Helper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop database %s: %v", h.DBName, err)
	}
	if err := h.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
