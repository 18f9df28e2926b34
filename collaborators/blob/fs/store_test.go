package fs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/session-mesh/jobengine/collaborators/blob/compliance"
	"github.com/session-mesh/jobengine/engine"
)

func TestFSStore_Compliance(t *testing.T) {
	compliance.RunFileSystemComplianceTest(t, func() (engine.FileSystem, func()) {
		tmpDir, err := os.MkdirTemp("", "fs-store-test-*")
		require.NoError(t, err)

		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		return store, func() { os.RemoveAll(tmpDir) }
	})
}
