// Package gcs implements engine.FileSystem against a Google Cloud
// Storage bucket, for deployments that keep attachment blobs in
// object storage rather than on a single machine's volume (see
// collaborators/blob/fs for that case).
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/session-mesh/jobengine/engine"
)

var _ engine.FileSystem = (*Store)(nil)

// Store is a GCS-backed implementation of engine.FileSystem. The
// FileSystem interface predates context plumbing, so Store keeps the
// context passed to NewStore and uses it for every SDK call, the same tradeoff the
// original package made for its GCS-backed storage.
type Store struct {
	ctx    context.Context
	client *storage.Client
	bucket string
}

// NewStore creates a GCS-backed blob store for bucketName. It assumes
// the client is authenticated, e.g. via GOOGLE_APPLICATION_CREDENTIALS.
func NewStore(ctx context.Context, bucketName string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: failed to create client: %w", err)
	}
	return &Store{ctx: ctx, client: client, bucket: bucketName}, nil
}

// Close releases the underlying GCS client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) object(atPath string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(atPath)
}

// Contents reads the full contents of the object at atPath.
func (s *Store) Contents(atPath string) ([]byte, error) {
	r, err := s.object(atPath).NewReader(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", atPath, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs: read %s: %w", atPath, err)
	}
	return data, nil
}

// Write stores data at atPath. The atomic flag is a no-op here: GCS
// object writes are already all-or-nothing from a reader's
// perspective, since a reader never observes a partially-written
// object.
func (s *Store) Write(data []byte, atPath string, atomic bool) error {
	w := s.object(atPath).NewWriter(s.ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcs: write %s: %w", atPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: write %s: %w", atPath, err)
	}
	return nil
}

// RemoveItem deletes the object at atPath. Missing objects are not an
// error, per the FileSystem contract.
func (s *Store) RemoveItem(atPath string) error {
	if err := s.object(atPath).Delete(s.ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: remove %s: %w", atPath, err)
	}
	return nil
}

// MoveItem relocates an object from one key to another via a
// copy-then-delete, since GCS has no native rename.
func (s *Store) MoveItem(from, to string) error {
	src := s.object(from)
	dst := s.object(to)
	if _, err := dst.CopierFrom(src).Run(s.ctx); err != nil {
		return fmt.Errorf("gcs: move %s to %s: %w", from, to, err)
	}
	if err := src.Delete(s.ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: move %s to %s: cleanup source: %w", from, to, err)
	}
	return nil
}

// ContentsOfDirectory lists object names under the atPath prefix,
// treated as a "/"-delimited directory.
func (s *Store) ContentsOfDirectory(atPath string) ([]string, error) {
	prefix := strings.TrimSuffix(atPath, "/") + "/"
	it := s.client.Bucket(s.bucket).Objects(s.ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs: list %s: %w", atPath, err)
		}
		names = append(names, strings.TrimPrefix(attrs.Name, prefix))
	}
	return names, nil
}

// FileExists reports whether an object exists at atPath.
func (s *Store) FileExists(atPath string) bool {
	_, err := s.object(atPath).Attrs(s.ctx)
	return err == nil
}
