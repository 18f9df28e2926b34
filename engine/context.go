package engine

import (
	"context"
	"io"
)

// PreparedRequest is an immutable, signed, not-yet-sent network call
// produced by the Network collaborator (glossary). Send executes it.
type PreparedRequest[T any] interface {
	Send(ctx context.Context) (T, error)
}

// NetworkError classifies a PreparedRequest.Send failure into the
// kinds section 6 names, distinct from the engine's own error
// taxonomy (outcome.go) since transport errors must still be mapped
// to Transient/Permanent by the executor before returning to the
// Runner.
type NetworkErrorKind int

const (
	NetworkErrorUnknown NetworkErrorKind = iota
	NetworkErrorNotFound
	NetworkErrorBadRequest
	NetworkErrorUnauthorised
	NetworkErrorParsingFailed
	NetworkErrorMaxFileSizeExceeded
	NetworkErrorInvalidResponse
	NetworkErrorTransport
)

type NetworkError struct {
	Kind NetworkErrorKind
	Err  error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// UploadResponse is the network client's response to a successful
// attachment upload.
type UploadResponse struct {
	Location string
	Size     int64
}

// BatchResponse is the response to a prepared batch of sub-requests.
type BatchResponse struct {
	Results [][]byte
}

// Network is the external network-client collaborator (section 6).
// The engine module defines only the interface and a gRPC-based
// reference implementation (collaborators/netclient/grpc); message
// wire format is explicitly a Non-goal.
type Network interface {
	PrepareDownload(url string, auth string) (PreparedRequest[io.ReadCloser], error)
	PrepareUpload(data io.Reader, auth string) (PreparedRequest[UploadResponse], error)
	PrepareBatch(requests [][]byte) (PreparedRequest[BatchResponse], error)
	PrepareGetExpiries(hashes []string, auth string) (PreparedRequest[map[string]int64], error)
	PrepareUpdateExpiry(hashes []string, newExpiryMs int64, shortenOnly bool, auth string) (PreparedRequest[map[string]int64], error)
}

// Crypto is the external cryptographic-provider collaborator (section
// 6). No concrete implementation ships in this module — it is an
// explicit Non-goal boundary, not a missing piece.
type Crypto interface {
	DecryptAttachment(ciphertext, key, digest []byte, unpaddedSize int64) ([]byte, error)
	EncryptAttachment(plaintext, key []byte) ([]byte, error)
	Sign(message []byte) (signature []byte, err error)
	GenerateBlindedKey(seed []byte) (publicKey []byte, err error)
}

// FileSystem is the external attachment-blob-I/O collaborator
// (section 6). Missing-file removals are non-fatal by contract.
type FileSystem interface {
	Contents(atPath string) ([]byte, error)
	Write(data []byte, atPath string, atomic bool) error
	RemoveItem(atPath string) error
	MoveItem(from, to string) error
	ContentsOfDirectory(atPath string) ([]string, error)
	FileExists(atPath string) bool
}

// EventSink receives optional executor-emitted notifications for the
// UI and config layers (section 6). Executors look one up per
// invocation from the Context; a nil EventSink is valid and events are
// simply dropped.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// Event is a single notification emitted by an executor, e.g.
// willUpload, success, or an attachment state change.
type Event struct {
	Name          string
	JobID         int64
	Variant       Variant
	ThreadID      *string
	InteractionID *string
	Attributes    map[string]string
}

// ConfigCache is the external structured-config-store collaborator
// ("libSession" in the glossary) — remote-synced user/group/contact
// configuration, external to the job engine. The engine only reads
// from it (e.g. groupLeaving checks admin status); it never writes.
type ConfigCache interface {
	IsGroupAdmin(threadID string) (isAdmin, isLastAdmin bool, err error)
	IsLegacyGroup(threadID string) bool
}

// AttachmentState is the lifecycle state of one attachment row,
// tracked outside the Job Record Store proper (attachments are
// domain data the engine's executors read/write, not job rows
// themselves — section 4.10).
type AttachmentState string

const (
	AttachmentPendingDownload AttachmentState = "pendingDownload"
	AttachmentDownloading     AttachmentState = "downloading"
	AttachmentDownloaded      AttachmentState = "downloaded"
	AttachmentFailedDownload  AttachmentState = "failedDownload"
	AttachmentInvalid         AttachmentState = "invalid"
	AttachmentUploading       AttachmentState = "uploading"
	AttachmentUploaded        AttachmentState = "uploaded"
)

// Attachment is the subset of attachment-row fields the engine's
// executors need; persistence of the rest of the row is the host
// application's concern.
type Attachment struct {
	ID            string
	InteractionID string
	State         AttachmentState
	Key           []byte
	Digest        []byte
	UnpaddedSize  int64
	URL           string
	LocalPath     string
	IsCommunity   bool // SOGS destination: never encrypted
}

// AttachmentStore is the external collaborator tracking attachment
// rows referenced by attachmentDownload/attachmentUpload/
// failedAttachmentDownloads (section 4.10). It is a narrower sibling
// of Store, kept separate because attachments are domain rows the
// engine's executors manipulate, not Job rows the Runner schedules.
type AttachmentStore interface {
	Fetch(ctx context.Context, id string) (*Attachment, error)
	CompareAndSwapState(ctx context.Context, id string, from, to AttachmentState) (bool, error)
	Update(ctx context.Context, a *Attachment) error
	InteractionExists(ctx context.Context, interactionID string) (bool, error)
}

// CleanupCounts reports how many rows each garbage-collection query
// removed, for idempotence testing (section 8: "running twice over
// the same database state yields ... zero deletions").
type CleanupCounts struct {
	TypingIndicators       int
	OldCommunityMessages   int
	OrphanedLinkPreviews   int
	OrphanedAttachments    int
	OrphanedProfiles       int
	ExpiredDedupRecords    int
	ShadowThreads          int
	ExpiredPendingReceipts int
}

// GarbageCollector is the domain-cleanup collaborator the
// garbageCollection executor drives (section 4.9, 4.10): a configured
// subset of cleanup queries run against the application's own tables,
// which are outside the Job Record Store itself.
type GarbageCollector interface {
	DeleteOldTypingIndicators(ctx context.Context) (int, error)
	DeleteOldCommunityMessages(ctx context.Context, olderThanDays int, minThreadMessages int) (int, error)
	DeleteOrphanedLinkPreviews(ctx context.Context) (int, error)
	DeleteOrphanedAttachments(ctx context.Context) ([]string, error) // returns removed local paths for FS reconciliation
	DeleteOrphanedProfiles(ctx context.Context) (int, error)
	DeleteExpiredDedupRecords(ctx context.Context) (int, error)
	DeleteShadowThreads(ctx context.Context) (int, error)
	DeleteExpiredPendingReceipts(ctx context.Context) (int, error)
}

// Context bundles every external collaborator an executor may need,
// replacing the process-wide service locator the source threads
// everywhere (design notes): Store, Network, Crypto, File system,
// Clock, Config cache, and EventSink all travel explicitly through
// this one value.
type Context struct {
	Store       Store
	Attachments AttachmentStore
	Network     Network
	Crypto      Crypto
	FS          FileSystem
	Clock       Clock
	Config      ConfigCache
	Events      EventSink
	GC          GarbageCollector
}
