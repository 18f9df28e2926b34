// Package compliance runs a standard set of behavioral checks against
// any engine.FileSystem implementation, so collaborators/blob/fs and
// collaborators/blob/gcs are held to the same contract instead of each
// inventing its own ad hoc test set.
package compliance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/session-mesh/jobengine/engine"
)

// RunFileSystemComplianceTest runs the shared suite against an
// engine.FileSystem implementation. setup returns a fresh store and a
// teardown func invoked after each subtest.
func RunFileSystemComplianceTest(t *testing.T, setup func() (engine.FileSystem, func())) {
	t.Run("WriteAndReadContents", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		path := uuid.New().String() + ".bin"
		data := []byte("attachment blob contents")

		require.NoError(t, store.Write(data, path, false))

		got, err := store.Contents(path)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("AtomicWriteNeverLeavesPartialFile", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		path := uuid.New().String() + ".bin"
		require.NoError(t, store.Write([]byte("first version"), path, true))
		require.NoError(t, store.Write([]byte("second version, longer"), path, true))

		got, err := store.Contents(path)
		require.NoError(t, err)
		assert.Equal(t, "second version, longer", string(got))
	})

	t.Run("FileExists", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		path := uuid.New().String() + ".bin"
		assert.False(t, store.FileExists(path))

		require.NoError(t, store.Write([]byte("x"), path, false))
		assert.True(t, store.FileExists(path))
	})

	t.Run("RemoveItem", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		path := uuid.New().String() + ".bin"
		require.NoError(t, store.Write([]byte("x"), path, false))
		require.NoError(t, store.RemoveItem(path))
		assert.False(t, store.FileExists(path))
	})

	t.Run("RemoveItemOnMissingFileIsNonFatal", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		// Missing-file removal must be non-fatal per the FileSystem
		// contract (engine/context.go).
		assert.NoError(t, store.RemoveItem(uuid.New().String()+".bin"))
	})

	t.Run("MoveItem", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		from := uuid.New().String() + ".bin"
		to := uuid.New().String() + ".bin"
		data := []byte("moved contents")

		require.NoError(t, store.Write(data, from, false))
		require.NoError(t, store.MoveItem(from, to))

		assert.False(t, store.FileExists(from))
		got, err := store.Contents(to)
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("ContentsOfDirectory", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		dir := uuid.New().String()
		require.NoError(t, store.Write([]byte("a"), dir+"/a.bin", false))
		require.NoError(t, store.Write([]byte("b"), dir+"/b.bin", false))

		names, err := store.ContentsOfDirectory(dir)
		require.NoError(t, err)
		assert.Len(t, names, 2)
	})

	t.Run("ContentsOfMissingFileErrors", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		_, err := store.Contents(uuid.New().String() + ".bin")
		assert.Error(t, err)
	})
}
