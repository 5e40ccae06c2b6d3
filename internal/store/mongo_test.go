package store

import (
	"context"
	"fmt"
	"hotelscore/internal/score"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

// setupMongo starts a disposable MongoDB container and returns its URI.
// The test is skipped in -short mode or when no container runtime is available.
func setupMongo(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("container runtime unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s", host, port.Port())
}

func TestMongoStore(t *testing.T) {
	uri := setupMongo(t)
	var n atomic.Int32

	newStore := func(t *testing.T) *MongoStore {
		ctx := context.Background()
		s, err := ConnectMongo(ctx, uri, fmt.Sprintf("hotelscore-test-%d", n.Add(1)), 5*time.Second)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(ctx) })
		return s
	}

	runStoreSuite(t, func(t *testing.T) backend { return newStore(t) })

	t.Run("legacy document shape", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		require.NoError(t, s.InsertRules(ctx, score.DefaultSeed().Rules))

		var doc bson.M
		require.NoError(t, s.rules.FindOne(ctx, bson.M{"scoreHotel": bson.M{"$exists": true}}).Decode(&doc))
		assert.Equal(t, 5.0, doc["scoreHotel"])
		assert.Equal(t, true, doc["active"])
		assert.NotContains(t, doc, "scoreCountry")
	})
}
