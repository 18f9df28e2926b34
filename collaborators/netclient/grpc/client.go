// Package grpc implements engine.Network against a single shared
// *grpc.ClientConn, grounded on the teacher's grpc/otelgrpc stack
// (cmd/server/main.go's createGRPCServer keepalive/stats-handler
// setup, mirrored here on the dial side). The concrete wire protocol
// per endpoint is an explicit Non-goal (spec.md §1); requests and
// responses travel as opaque byte payloads wrapped in
// wrapperspb.BytesValue so the client never needs endpoint-specific
// generated stubs, only the one generic unary method below.
package grpc

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/session-mesh/jobengine/engine"
)

// method names on the file-server/storage-server side; the actual
// service definition is out of scope (Non-goal), these are the
// well-known RPC names the reference deployment exposes.
const (
	methodDownload     = "/session.fileserver.v1.FileServer/Download"
	methodUpload       = "/session.fileserver.v1.FileServer/Upload"
	methodBatch        = "/session.fileserver.v1.FileServer/Batch"
	methodGetExpiries  = "/session.fileserver.v1.FileServer/GetExpiries"
	methodUpdateExpiry = "/session.fileserver.v1.FileServer/UpdateExpiry"
)

// Client dials once and is shared across every prepared request, the
// same pooling discipline store/postgres applies to its connection
// pool.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC connection to target, instrumented with otelgrpc
// the same way the teacher's gRPC server is (client side of the same
// stats handler).
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("jobengine/netclient: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

var _ engine.Network = (*Client)(nil)

// request is a generic PreparedRequest[T] that holds its RPC method,
// payload, and a decode function, and invokes the RPC lazily on Send.
type request[T any] struct {
	conn    *grpc.ClientConn
	method  string
	payload []byte
	auth    string
	decode  func([]byte) (T, error)
}

func (r *request[T]) Send(ctx context.Context) (T, error) {
	var zero T
	if r.auth != "" {
		ctx = withBearerAuth(ctx, r.auth)
	}
	in := wrapperspb.Bytes(r.payload)
	out := new(wrapperspb.BytesValue)
	if err := r.conn.Invoke(ctx, r.method, in, out); err != nil {
		return zero, classify(err)
	}
	return r.decode(out.GetValue())
}

// classify maps a gRPC status error onto the engine's NetworkError
// taxonomy (section 6), distinct transport-layer kinds an executor
// must translate into its own permanent/transient decision.
func classify(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &engine.NetworkError{Kind: engine.NetworkErrorTransport, Err: err}
	}
	switch st.Code() {
	case codes.NotFound:
		return &engine.NetworkError{Kind: engine.NetworkErrorNotFound, Err: err}
	case codes.InvalidArgument, codes.FailedPrecondition:
		return &engine.NetworkError{Kind: engine.NetworkErrorBadRequest, Err: err}
	case codes.Unauthenticated, codes.PermissionDenied:
		return &engine.NetworkError{Kind: engine.NetworkErrorUnauthorised, Err: err}
	case codes.ResourceExhausted:
		return &engine.NetworkError{Kind: engine.NetworkErrorMaxFileSizeExceeded, Err: err}
	case codes.DataLoss, codes.Internal:
		return &engine.NetworkError{Kind: engine.NetworkErrorInvalidResponse, Err: err}
	default:
		return &engine.NetworkError{Kind: engine.NetworkErrorTransport, Err: err}
	}
}

func withBearerAuth(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (c *Client) PrepareDownload(url string, auth string) (engine.PreparedRequest[io.ReadCloser], error) {
	return &request[io.ReadCloser]{
		conn:    c.conn,
		method:  methodDownload,
		payload: []byte(url),
		auth:    auth,
		decode: func(b []byte) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}, nil
}

func (c *Client) PrepareUpload(data io.Reader, auth string) (engine.PreparedRequest[engine.UploadResponse], error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("jobengine/netclient: read upload body: %w", err)
	}
	return &request[engine.UploadResponse]{
		conn:    c.conn,
		method:  methodUpload,
		payload: payload,
		auth:    auth,
		decode: func(b []byte) (engine.UploadResponse, error) {
			var resp engine.UploadResponse
			if err := json.Unmarshal(b, &resp); err != nil {
				return engine.UploadResponse{}, fmt.Errorf("jobengine/netclient: decode upload response: %w", err)
			}
			return resp, nil
		},
	}, nil
}

func (c *Client) PrepareBatch(requests [][]byte) (engine.PreparedRequest[engine.BatchResponse], error) {
	payload, err := encodeByteSlices(requests)
	if err != nil {
		return nil, err
	}
	return &request[engine.BatchResponse]{
		conn:    c.conn,
		method:  methodBatch,
		payload: payload,
		decode: func(b []byte) (engine.BatchResponse, error) {
			results, err := decodeByteSlices(b)
			if err != nil {
				return engine.BatchResponse{}, err
			}
			return engine.BatchResponse{Results: results}, nil
		},
	}, nil
}

func (c *Client) PrepareGetExpiries(hashes []string, auth string) (engine.PreparedRequest[map[string]int64], error) {
	payload, err := json.Marshal(hashes)
	if err != nil {
		return nil, fmt.Errorf("jobengine/netclient: encode hashes: %w", err)
	}
	return &request[map[string]int64]{
		conn:    c.conn,
		method:  methodGetExpiries,
		payload: payload,
		auth:    auth,
		decode:  decodeExpiryMap,
	}, nil
}

func (c *Client) PrepareUpdateExpiry(hashes []string, newExpiryMs int64, shortenOnly bool, auth string) (engine.PreparedRequest[map[string]int64], error) {
	payload, err := json.Marshal(struct {
		Hashes      []string `json:"hashes"`
		NewExpiryMs int64    `json:"new_expiry_ms"`
		ShortenOnly bool     `json:"shorten_only"`
	}{hashes, newExpiryMs, shortenOnly})
	if err != nil {
		return nil, fmt.Errorf("jobengine/netclient: encode update-expiry request: %w", err)
	}
	return &request[map[string]int64]{
		conn:    c.conn,
		method:  methodUpdateExpiry,
		payload: payload,
		auth:    auth,
		decode:  decodeExpiryMap,
	}, nil
}

func decodeExpiryMap(b []byte) (map[string]int64, error) {
	var out map[string]int64
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("jobengine/netclient: decode expiry map: %w", err)
	}
	return out, nil
}

// encodeByteSlices/decodeByteSlices give PrepareBatch a length-prefixed
// wire format for [][]byte without pulling in a second serialization
// library just for this one call.
func encodeByteSlices(parts [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(parts))); err != nil {
		return nil, err
	}
	for _, p := range parts {
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(p))); err != nil {
			return nil, err
		}
		buf.Write(p)
	}
	return buf.Bytes(), nil
}

func decodeByteSlices(b []byte) ([][]byte, error) {
	r := bytes.NewReader(b)
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("jobengine/netclient: decode batch response count: %w", err)
	}
	out := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		var l uint32
		if err := binary.Read(r, binary.BigEndian, &l); err != nil {
			return nil, fmt.Errorf("jobengine/netclient: decode batch response length: %w", err)
		}
		part := make([]byte, l)
		if _, err := io.ReadFull(r, part); err != nil {
			return nil, fmt.Errorf("jobengine/netclient: decode batch response payload: %w", err)
		}
		out = append(out, part)
	}
	return out, nil
}
