package rpcreq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		url    string
		body   string
		kind   Kind
		want   Class
	}{
		{
			name:   "beacon header sync lag",
			status: 404,
			url:    "/eth/v1/beacon/headers/0xabc",
			body:   "Header not found",
			kind:   BeaconAPI,
			want:   ErrorRetry,
		},
		{
			name:   "invalid params is a user error",
			status: 200,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid argument"}}`,
			kind:   ExecRPC,
			want:   ErrorUser,
		},
		{
			name:   "invalid params from node deserialization retries",
			status: 200,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"unsupported param form"}}`,
			kind:   ExecRPC,
			want:   ErrorRetry,
		},
		{
			name:   "method not supported on 400",
			status: 400,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32004,"message":"not supported"}}`,
			kind:   ExecRPC,
			want:   ErrorMethodNotSupported,
		},
		{
			name:   "method not supported on 200",
			status: 200,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32004,"message":"not supported"}}`,
			kind:   ExecRPC,
			want:   ErrorMethodNotSupported,
		},
		{
			name:   "unauthorized retries",
			status: 401,
			url:    "/",
			body:   "",
			kind:   ExecRPC,
			want:   ErrorRetry,
		},
		{
			name:   "exec 404 is a user error",
			status: 404,
			url:    "/",
			body:   "",
			kind:   ExecRPC,
			want:   ErrorUser,
		},
		{
			name:   "server error retries",
			status: 502,
			url:    "/",
			body:   "bad gateway",
			kind:   BeaconAPI,
			want:   ErrorRetry,
		},
		{
			name:   "beacon 404 off the header path retries",
			status: 404,
			url:    "/eth/v2/beacon/blocks/123",
			body:   "NOT_FOUND",
			kind:   BeaconAPI,
			want:   ErrorRetry,
		},
		{
			name:   "plain success",
			status: 200,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"result":"0x1"}`,
			kind:   ExecRPC,
			want:   Success,
		},
		{
			name:   "internal rpc error retries",
			status: 200,
			url:    "/",
			body:   `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"boom"}}`,
			kind:   ExecRPC,
			want:   ErrorRetry,
		},
		{
			name:   "beacon ssz success",
			status: 200,
			url:    "/eth/v1/beacon/light_client/updates",
			body:   "\x01\x02",
			kind:   BeaconAPI,
			want:   Success,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.status, tt.url, []byte(tt.body), tt.kind)
			require.Equal(t, tt.want, got)
		})
	}
}
