package mongo_test

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/billing/store/mongo"
	"github.com/xraph/billing/store/storetest"
)

// TestStore runs against the replica set named by BILLING_TEST_MONGO_URI,
// e.g. mongodb://localhost:27017/billing_test?replicaSet=rs0.
func TestStore(t *testing.T) {
	uri := os.Getenv("BILLING_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("BILLING_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := mongo.Open(ctx, uri)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	storetest.Run(t, s)
}
