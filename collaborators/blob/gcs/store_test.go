package gcs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"github.com/session-mesh/jobengine/collaborators/blob/compliance"
	"github.com/session-mesh/jobengine/engine"
)

func TestGCSStore_Compliance(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set, skipping GCS tests")
	}

	compliance.RunFileSystemComplianceTest(t, func() (engine.FileSystem, func()) {
		ctx := context.Background()

		store, err := NewStore(ctx, bucket)
		require.NoError(t, err)

		cleanup := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			it := store.client.Bucket(bucket).Objects(cleanupCtx, nil)
			for {
				attrs, err := it.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					break
				}
				store.client.Bucket(bucket).Object(attrs.Name).Delete(cleanupCtx)
			}
		}

		return store, cleanup
	})
}
