package executors

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/session-mesh/jobengine/engine"
)

// fakeTx is a no-op transaction for tests that only need Store.Begin
// to succeed.
type fakeTx struct{}

func (fakeTx) Commit(ctx context.Context) error   { return nil }
func (fakeTx) Rollback(ctx context.Context) error { return nil }

// fakeStore is a minimal in-memory engine.Store sufficient for the
// executor tests that only exercise FetchByFilter (racingDuplicateCheck).
type fakeStore struct {
	mu   sync.Mutex
	jobs []*engine.Job
}

func (s *fakeStore) Begin(ctx context.Context) (engine.Tx, error) { return fakeTx{}, nil }

func (s *fakeStore) Insert(ctx context.Context, tx engine.Tx, job *engine.Job) (int64, error) {
	return 0, nil
}
func (s *fakeStore) Upsert(ctx context.Context, tx engine.Tx, job *engine.Job) error { return nil }
func (s *fakeStore) Update(ctx context.Context, tx engine.Tx, job *engine.Job) error { return nil }
func (s *fakeStore) Delete(ctx context.Context, tx engine.Tx, id int64) error        { return nil }

func (s *fakeStore) FetchOne(ctx context.Context, tx engine.Tx, id int64) (*engine.Job, error) {
	return nil, nil
}

func (s *fakeStore) FetchByFilter(ctx context.Context, tx engine.Tx, f engine.Filter) ([]*engine.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*engine.Job
	for _, j := range s.jobs {
		if f.Variant != nil && j.Variant != *f.Variant {
			continue
		}
		if f.Status != nil && j.Status != *f.Status {
			continue
		}
		excluded := false
		for _, id := range f.ExcludeIDs {
			if id == j.ID {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *fakeStore) AddDependency(ctx context.Context, tx engine.Tx, edge engine.DependencyEdge) error {
	return nil
}
func (s *fakeStore) FetchDependencies(ctx context.Context, tx engine.Tx, id int64) ([]engine.DependencyEdge, error) {
	return nil, nil
}
func (s *fakeStore) FetchAllDependencies(ctx context.Context, tx engine.Tx) ([]engine.DependencyEdge, error) {
	return nil, nil
}
func (s *fakeStore) InsertMany(ctx context.Context, tx engine.Tx, jobs []*engine.Job) ([]int64, error) {
	return nil, nil
}
func (s *fakeStore) MarkAllRunningAsRunnable(ctx context.Context, tx engine.Tx) (int, error) {
	return 0, nil
}
func (s *fakeStore) MoveToDeadLetter(ctx context.Context, tx engine.Tx, job *engine.Job, classification, message string) error {
	return nil
}
func (s *fakeStore) ListDeadLetter(ctx context.Context, limit int) ([]engine.DeadLetterJob, error) {
	return nil, nil
}
func (s *fakeStore) DiscardDeadLetter(ctx context.Context, id int64) error { return nil }
func (s *fakeStore) RetryDeadLetter(ctx context.Context, id int64) (int64, error) {
	return 0, nil
}
func (s *fakeStore) TryAcquireExclusiveRun(ctx context.Context, variant engine.Variant, holderID string, lease engine.Duration) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}
func (s *fakeStore) Close() error { return nil }

// fakeAttachmentStore is a map-backed AttachmentStore.
type fakeAttachmentStore struct {
	mu   sync.Mutex
	byID map[string]*engine.Attachment
}

func newFakeAttachmentStore() *fakeAttachmentStore {
	return &fakeAttachmentStore{byID: make(map[string]*engine.Attachment)}
}

func (s *fakeAttachmentStore) Fetch(ctx context.Context, id string) (*engine.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, errors.New("attachment not found")
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttachmentStore) CompareAndSwapState(ctx context.Context, id string, from, to engine.AttachmentState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.State != from {
		return false, nil
	}
	a.State = to
	return true, nil
}

func (s *fakeAttachmentStore) Update(ctx context.Context, a *engine.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *fakeAttachmentStore) InteractionExists(ctx context.Context, interactionID string) (bool, error) {
	return true, nil
}

// fakeReadCloser adapts a string into an io.ReadCloser.
type fakeReadCloser struct{ io.Reader }

func (fakeReadCloser) Close() error { return nil }

// fakePreparedRequest returns a fixed value or error on Send.
type fakePreparedRequest[T any] struct {
	val T
	err error
}

func (p fakePreparedRequest[T]) Send(ctx context.Context) (T, error) { return p.val, p.err }

// fakeNetwork implements engine.Network with canned responses.
type fakeNetwork struct {
	downloadBody    string
	downloadErr     error
	prepareErr      error
	uploadResp      engine.UploadResponse
	uploadErr       error
	batchResp       engine.BatchResponse
	batchErr        error
	expiriesResp    map[string]int64
	expiriesErr     error
	updateExpiryErr error
}

func (n *fakeNetwork) PrepareDownload(url, auth string) (engine.PreparedRequest[io.ReadCloser], error) {
	if n.prepareErr != nil {
		return nil, n.prepareErr
	}
	return fakePreparedRequest[io.ReadCloser]{val: fakeReadCloser{strings.NewReader(n.downloadBody)}, err: n.downloadErr}, nil
}

func (n *fakeNetwork) PrepareUpload(data io.Reader, auth string) (engine.PreparedRequest[engine.UploadResponse], error) {
	return fakePreparedRequest[engine.UploadResponse]{val: n.uploadResp, err: n.uploadErr}, nil
}

func (n *fakeNetwork) PrepareBatch(requests [][]byte) (engine.PreparedRequest[engine.BatchResponse], error) {
	return fakePreparedRequest[engine.BatchResponse]{val: n.batchResp, err: n.batchErr}, nil
}

func (n *fakeNetwork) PrepareGetExpiries(hashes []string, auth string) (engine.PreparedRequest[map[string]int64], error) {
	return fakePreparedRequest[map[string]int64]{val: n.expiriesResp, err: n.expiriesErr}, nil
}

func (n *fakeNetwork) PrepareUpdateExpiry(hashes []string, newExpiryMs int64, shortenOnly bool, auth string) (engine.PreparedRequest[map[string]int64], error) {
	return fakePreparedRequest[map[string]int64]{val: n.expiriesResp, err: n.updateExpiryErr}, nil
}

// fakeFS is an in-memory FileSystem.
type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFS() *fakeFS { return &fakeFS{files: make(map[string][]byte)} }

func (f *fakeFS) Contents(atPath string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[atPath]
	if !ok {
		return nil, errors.New("no such file")
	}
	return b, nil
}

func (f *fakeFS) Write(data []byte, atPath string, atomic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[atPath] = data
	return nil
}

func (f *fakeFS) RemoveItem(atPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, atPath)
	return nil
}

func (f *fakeFS) MoveItem(from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[to] = f.files[from]
	delete(f.files, from)
	return nil
}

func (f *fakeFS) ContentsOfDirectory(atPath string) ([]string, error) { return nil, nil }

func (f *fakeFS) FileExists(atPath string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[atPath]
	return ok
}

// fakeCrypto is a pass-through Crypto collaborator for tests.
type fakeCrypto struct {
	decryptErr error
}

func (c *fakeCrypto) DecryptAttachment(ciphertext, key, digest []byte, unpaddedSize int64) ([]byte, error) {
	if c.decryptErr != nil {
		return nil, c.decryptErr
	}
	return ciphertext, nil
}

func (c *fakeCrypto) EncryptAttachment(plaintext, key []byte) ([]byte, error) { return plaintext, nil }
func (c *fakeCrypto) Sign(message []byte) ([]byte, error)                    { return message, nil }
func (c *fakeCrypto) GenerateBlindedKey(seed []byte) ([]byte, error)         { return seed, nil }

// fakeGC is a counting GarbageCollector.
type fakeGC struct {
	calls               map[string]int
	orphanedAttachments []string
	err                 error
}

func newFakeGC() *fakeGC {
	return &fakeGC{calls: make(map[string]int)}
}

func (g *fakeGC) DeleteOldTypingIndicators(ctx context.Context) (int, error) {
	g.calls["typingIndicators"]++
	return 1, g.err
}
func (g *fakeGC) DeleteOldCommunityMessages(ctx context.Context, olderThanDays, minThreadMessages int) (int, error) {
	g.calls["oldCommunityMessages"]++
	return 2, g.err
}
func (g *fakeGC) DeleteOrphanedLinkPreviews(ctx context.Context) (int, error) {
	g.calls["orphanedLinkPreviews"]++
	return 3, g.err
}
func (g *fakeGC) DeleteOrphanedAttachments(ctx context.Context) ([]string, error) {
	g.calls["orphanedAttachments"]++
	return g.orphanedAttachments, g.err
}
func (g *fakeGC) DeleteOrphanedProfiles(ctx context.Context) (int, error) {
	g.calls["orphanedProfiles"]++
	return 4, g.err
}
func (g *fakeGC) DeleteExpiredDedupRecords(ctx context.Context) (int, error) {
	g.calls["expiredDedupRecords"]++
	return 5, g.err
}
func (g *fakeGC) DeleteShadowThreads(ctx context.Context) (int, error) {
	g.calls["shadowThreads"]++
	return 6, g.err
}
func (g *fakeGC) DeleteExpiredPendingReceipts(ctx context.Context) (int, error) {
	g.calls["expiredPendingReceipts"]++
	return 7, g.err
}

// fakeEventSink records emitted events.
type fakeEventSink struct {
	mu     sync.Mutex
	events []engine.Event
}

func (e *fakeEventSink) Emit(ctx context.Context, ev engine.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}
