package grpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/session-mesh/jobengine/engine"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		code codes.Code
		want engine.NetworkErrorKind
	}{
		{codes.NotFound, engine.NetworkErrorNotFound},
		{codes.InvalidArgument, engine.NetworkErrorBadRequest},
		{codes.FailedPrecondition, engine.NetworkErrorBadRequest},
		{codes.Unauthenticated, engine.NetworkErrorUnauthorised},
		{codes.PermissionDenied, engine.NetworkErrorUnauthorised},
		{codes.ResourceExhausted, engine.NetworkErrorMaxFileSizeExceeded},
		{codes.Internal, engine.NetworkErrorInvalidResponse},
		{codes.Unavailable, engine.NetworkErrorTransport},
	}

	for _, tc := range cases {
		err := classify(status.Error(tc.code, "boom"))
		var netErr *engine.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, tc.want, netErr.Kind)
	}
}

func TestClassify_NonStatusError(t *testing.T) {
	err := classify(errors.New("not a grpc status"))
	var netErr *engine.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, engine.NetworkErrorTransport, netErr.Kind)
}

func TestEncodeDecodeByteSlices_RoundTrip(t *testing.T) {
	parts := [][]byte{
		[]byte("first"),
		[]byte(""),
		[]byte("third chunk of data"),
	}

	encoded, err := encodeByteSlices(parts)
	require.NoError(t, err)

	decoded, err := decodeByteSlices(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(parts))
	for i := range parts {
		assert.Equal(t, parts[i], decoded[i])
	}
}

func TestEncodeDecodeByteSlices_Empty(t *testing.T) {
	encoded, err := encodeByteSlices(nil)
	require.NoError(t, err)

	decoded, err := decodeByteSlices(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeByteSlices_TruncatedInput(t *testing.T) {
	_, err := decodeByteSlices([]byte{0, 0, 0, 1})
	assert.Error(t, err)
}
